package scoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

// predicate is one tagged check of a rule: equality, range or threshold.
type predicate interface {
	match(value any) bool
}

type equalsPredicate struct{ want any }

type rangePredicate struct{ lo, hi float64 }

type thresholdPredicate struct {
	op        string
	threshold float64
}

// predicatesOf returns the populated checks of r in evaluation order:
// equals, range, then op/threshold.
func predicatesOf(r questionnaire.Rule) []predicate {
	preds := make([]predicate, 0, 3)
	if r.Equals != nil {
		preds = append(preds, equalsPredicate{want: r.Equals.Value})
	}
	if len(r.Range) == 2 {
		preds = append(preds, rangePredicate{lo: r.Range[0], hi: r.Range[1]})
	}
	if r.Op != "" && r.Threshold != nil {
		preds = append(preds, thresholdPredicate{op: r.Op, threshold: *r.Threshold})
	}
	return preds
}

func (p equalsPredicate) match(value any) bool {
	return valuesEqual(value, p.want)
}

func (p rangePredicate) match(value any) bool {
	v, ok := toNumber(value)
	if !ok {
		return false
	}
	return p.lo <= v && v <= p.hi
}

func (p thresholdPredicate) match(value any) bool {
	v, ok := toNumber(value)
	if !ok {
		return false
	}
	t := p.threshold
	switch p.op {
	case questionnaire.OpGT:
		return v > t
	case questionnaire.OpGE:
		return v >= t
	case questionnaire.OpEQ:
		return v == t
	case questionnaire.OpLT:
		return v < t
	case questionnaire.OpLE:
		return v <= t
	default:
		return false
	}
}

// toNumber coerces an answer to a real number. Booleans count as 1 and 0,
// strings are parsed after trimming. nil, dates and anything else are not numbers.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// valuesEqual compares an answer with an equals literal. Numbers compare by
// value whatever their Go type, and a boolean equals the number 1 or 0.
// Strings and dates only equal their own kind.
func valuesEqual(value, want any) bool {
	if value == nil || want == nil {
		return value == nil && want == nil
	}
	switch w := want.(type) {
	case string:
		v, ok := value.(string)
		return ok && v == w
	case time.Time:
		v, ok := value.(time.Time)
		return ok && v.Equal(w)
	}
	switch value.(type) {
	case string, time.Time:
		return false
	}
	wn, wok := toNumber(want)
	vn, vok := toNumber(value)
	return wok && vok && wn == vn
}
