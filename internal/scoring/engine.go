// Package scoring evaluates questionnaire answers against the declarative risk
// rules of a questionnaire document.
//
// An Engine is built once from a loaded document and never mutated, so a
// single instance is shared by all concurrent submissions without locking.
package scoring

import (
	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

// EvalResult is the outcome of evaluating one question.
type EvalResult struct {
	Color  questionnaire.Color `json:"color"`
	Points float64             `json:"points"`
}

var noMatch = EvalResult{Color: questionnaire.White, Points: 0}

// Engine scores answer sets against one questionnaire document.
type Engine struct {
	questions   []questionnaire.Question
	colorPoints map[questionnaire.Color]float64
	critical    map[string]struct{}
	orangeAt    float64
	redAt       float64
	maxPoints   float64
}

// NewEngine builds an engine from doc. A nil doc behaves like an empty one.
func NewEngine(doc *questionnaire.Document) *Engine {
	if doc == nil {
		doc = &questionnaire.Document{}
	}
	e := &Engine{
		questions:   append([]questionnaire.Question(nil), doc.Questions...),
		colorPoints: doc.ColorPoints(),
		critical:    map[string]struct{}{},
	}
	for _, id := range doc.CriticalIDs() {
		e.critical[id] = struct{}{}
	}
	e.orangeAt, e.redAt = doc.Thresholds()
	e.maxPoints = e.computeMaxPoints()
	return e
}

// Questions returns the configured questions in document order.
func (e *Engine) Questions() []questionnaire.Question {
	return append([]questionnaire.Question(nil), e.questions...)
}

// Points returns the points of a color tier; unknown colors are worth 0.
func (e *Engine) Points(c questionnaire.Color) float64 {
	return e.colorPoints[c]
}

// EvalQuestion walks q's rules in order and returns the first match.
// Questions without rules or with weight 0 always yield white/0.
func (e *Engine) EvalQuestion(q questionnaire.Question, value any) EvalResult {
	if !q.Scored() {
		return noMatch
	}
	w := q.EffectiveWeight()
	for _, rule := range q.RiskRules {
		if matchRule(rule, value) {
			return EvalResult{Color: rule.Color, Points: e.Points(rule.Color) * w}
		}
	}
	return noMatch
}

// matchRule reports whether any populated predicate of rule accepts value.
func matchRule(rule questionnaire.Rule, value any) bool {
	for _, p := range predicatesOf(rule) {
		if p.match(value) {
			return true
		}
	}
	return false
}

// MaxPoints is the normalisation denominator: for every scored question, its
// weight times the best tier its own rules can reach. Never returns 0.
func (e *Engine) MaxPoints() float64 {
	return e.maxPoints
}

func (e *Engine) computeMaxPoints() float64 {
	total := 0.0
	for _, q := range e.questions {
		total += e.questionMax(q)
	}
	if total > 0 {
		return total
	}
	return 1.0
}

func (e *Engine) questionMax(q questionnaire.Question) float64 {
	if !q.Scored() {
		return 0
	}
	best := 0.0
	for i, r := range q.RiskRules {
		if p := e.Points(r.Color); i == 0 || p > best {
			best = p
		}
	}
	return q.EffectiveWeight() * best
}

// LabelForGlobal maps a percentage score to a global color.
func (e *Engine) LabelForGlobal(pct float64) questionnaire.Color {
	switch {
	case pct >= e.redAt:
		return questionnaire.Red
	case pct >= e.orangeAt:
		return questionnaire.Orange
	default:
		return questionnaire.White
	}
}

// IsCritical reports whether a red answer to question id escalates the
// global label.
func (e *Engine) IsCritical(id string) bool {
	_, ok := e.critical[id]
	return ok
}
