package questionnaire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Color is a risk tier. The ordered set is white < orange < red.
type Color string

const (
	White  Color = "white"
	Orange Color = "orange"
	Red    Color = "red"
)

// Question types understood by the presentation layer. Scoring ignores them.
const (
	TypeScale   = "scale"
	TypeNumeric = "numeric"
	TypeYesNo   = "yesno"
	TypeSelect  = "select"
	TypeDate    = "date"
	TypeText    = "text"
)

// Comparators accepted by threshold rules.
const (
	OpGT = ">"
	OpGE = ">="
	OpEQ = "=="
	OpLT = "<"
	OpLE = "<="
)

// DefaultColorPoints is used when the document carries no color_points table.
var DefaultColorPoints = map[Color]float64{White: 0, Orange: 1, Red: 2}

// DefaultCriticalIDs are the questions whose red answer forces a red global label.
var DefaultCriticalIDs = []string{"rehospitalisation", "reoperation"}

// Global label cut-offs on the percentage score.
const (
	DefaultOrangeThreshold = 34.0
	DefaultRedThreshold    = 67.0
)

// Document is the whole questionnaire configuration.
type Document struct {
	Metadata  Metadata   `yaml:"metadata" json:"metadata"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Metadata holds global scoring parameters.
type Metadata struct {
	Title           string            `yaml:"title,omitempty" json:"title,omitempty"`
	Version         string            `yaml:"version,omitempty" json:"version,omitempty"`
	ColorPoints     map[Color]float64 `yaml:"color_points,omitempty" json:"color_points,omitempty"`
	CriticalIDs     []string          `yaml:"critical_ids,omitempty" json:"critical_ids,omitempty"`
	GlobalThreshold *GlobalThreshold  `yaml:"global_thresholds,omitempty" json:"global_thresholds,omitempty"`
}

// GlobalThreshold overrides the percentage cut-offs of the global label. A
// missing bound keeps its default.
type GlobalThreshold struct {
	Orange *float64 `yaml:"orange,omitempty" json:"orange,omitempty"`
	Red    *float64 `yaml:"red,omitempty" json:"red,omitempty"`
}

// Question is one entry of the questionnaire.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Type        string   `yaml:"type" json:"type"`
	Label       string   `yaml:"label,omitempty" json:"label,omitempty"`
	Help        string   `yaml:"help,omitempty" json:"help,omitempty"`
	Block       string   `yaml:"block,omitempty" json:"block,omitempty"`
	Weight      *float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
	Min         *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Step        *float64 `yaml:"step,omitempty" json:"step,omitempty"`
	Default     any      `yaml:"default,omitempty" json:"default,omitempty"`
	IntegerOnly bool     `yaml:"integer_only,omitempty" json:"integer_only,omitempty"`
	Options     []string `yaml:"options,omitempty" json:"options,omitempty"`
	RiskRules   []Rule   `yaml:"risk_rules,omitempty" json:"risk_rules,omitempty"`
}

// EffectiveWeight returns the configured weight, 1.0 when absent.
func (q Question) EffectiveWeight() float64 {
	if q.Weight == nil {
		return 1.0
	}
	return *q.Weight
}

// Scored reports whether the question can ever contribute points.
func (q Question) Scored() bool {
	return len(q.RiskRules) > 0 && q.EffectiveWeight() != 0
}

// Rule maps one predicate to a color. More than one predicate may be populated;
// the evaluator checks equals, then range, then op/threshold.
type Rule struct {
	Color     Color     `json:"color"`
	Equals    *Literal  `json:"equals,omitempty"`
	Range     []float64 `json:"range,omitempty"`
	Op        string    `json:"op,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// Literal is the right-hand side of an equals predicate. A nil Value with a
// non-nil *Literal means the document said "equals: null".
type Literal struct {
	Value any
}

// MarshalJSON renders the bare value.
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Value)
}

type rawRule struct {
	Color     Color     `yaml:"color"`
	Equals    yaml.Node `yaml:"equals"`
	Range     yaml.Node `yaml:"range"`
	Op        string    `yaml:"op"`
	Threshold yaml.Node `yaml:"threshold"`
}

// UnmarshalYAML keeps "equals: false" and "equals: null" distinct from an
// absent equals key.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var raw rawRule
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*r = Rule{
		Color: raw.Color,
		Op:    raw.Op,
	}
	if present(&raw.Range) {
		if raw.Range.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: range must be a list", raw.Range.Line)
		}
		r.Range = make([]float64, 0, len(raw.Range.Content))
		for _, item := range raw.Range.Content {
			f, err := decodeNumber(item)
			if err != nil {
				return fmt.Errorf("line %d: range bound: %w", item.Line, err)
			}
			r.Range = append(r.Range, f)
		}
	}
	if present(&raw.Threshold) {
		f, err := decodeNumber(&raw.Threshold)
		if err != nil {
			return fmt.Errorf("line %d: threshold: %w", raw.Threshold.Line, err)
		}
		r.Threshold = &f
	}
	if r.Color == "" {
		r.Color = White
	}
	if raw.Equals.Kind != 0 {
		var v any
		if err := raw.Equals.Decode(&v); err != nil {
			return fmt.Errorf("line %d: decode equals: %w", raw.Equals.Line, err)
		}
		r.Equals = &Literal{Value: normalizeLiteral(v)}
	}
	return nil
}

func present(n *yaml.Node) bool {
	return n.Kind != 0 && !(n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// decodeNumber reads a numeric scalar. Quoted numbers such as '5' are
// accepted and parsed after trimming.
func decodeNumber(n *yaml.Node) (float64, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, errors.New("expected a number")
	}
	if n.ShortTag() == "!!str" {
		f, err := strconv.ParseFloat(strings.TrimSpace(n.Value), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n.Value)
		}
		return f, nil
	}
	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, err
	}
	return f, nil
}

// normalizeLiteral folds YAML integer kinds into float64 so that numeric
// literals compare like answers decoded from JSON.
func normalizeLiteral(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return v
	}
}
