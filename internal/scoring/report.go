package scoring

import (
	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

// QuestionResult is the per-question line of a report.
type QuestionResult struct {
	QuestionID string              `json:"question_id"`
	Label      string              `json:"label,omitempty"`
	Block      string              `json:"block,omitempty"`
	Weight     float64             `json:"weight"`
	Value      any                 `json:"value"`
	Color      questionnaire.Color `json:"color"`
	Points     float64             `json:"points"`
}

// Summary is the aggregate outcome of one answer set.
type Summary struct {
	TotalPoints float64             `json:"total_points"`
	MaxPoints   float64             `json:"max_points"`
	Percentage  float64             `json:"percentage"`
	GlobalColor questionnaire.Color `json:"global_color"`
	// Escalated is set when a critical question evaluated red.
	Escalated   bool     `json:"escalated,omitempty"`
	EscalatedBy []string `json:"escalated_by,omitempty"`
}

// Report bundles the per-question rows, in document order, with the summary.
type Report struct {
	Rows    []QuestionResult `json:"rows"`
	Summary Summary          `json:"summary"`
}

// Score evaluates every configured question against answers and derives the
// percentage and global label. Answers keyed by unknown ids are ignored;
// missing answers evaluate as nil.
func (e *Engine) Score(answers map[string]any) *Report {
	rep := &Report{Rows: make([]QuestionResult, 0, len(e.questions))}
	total := 0.0
	var critical []string
	for _, q := range e.questions {
		val := answers[q.ID]
		res := e.EvalQuestion(q, val)
		rep.Rows = append(rep.Rows, QuestionResult{
			QuestionID: q.ID,
			Label:      labelOf(q),
			Block:      q.Block,
			Weight:     q.EffectiveWeight(),
			Value:      val,
			Color:      res.Color,
			Points:     res.Points,
		})
		total += res.Points
		if res.Color == questionnaire.Red && e.IsCritical(q.ID) {
			critical = append(critical, q.ID)
		}
	}

	max := e.MaxPoints()
	pct := total / max * 100.0
	rep.Summary = Summary{
		TotalPoints: total,
		MaxPoints:   max,
		Percentage:  pct,
		GlobalColor: e.LabelForGlobal(pct),
	}
	if len(critical) > 0 {
		rep.Summary.GlobalColor = questionnaire.Red
		rep.Summary.Escalated = true
		rep.Summary.EscalatedBy = critical
	}
	return rep
}

func labelOf(q questionnaire.Question) string {
	if q.Label != "" {
		return q.Label
	}
	return q.ID
}
