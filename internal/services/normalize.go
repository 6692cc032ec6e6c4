package services

import (
	"strings"
	"time"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, "02/01/2006", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeAnswers copies raw and turns the string answers of date questions
// into time.Time. Nothing else is checked against the question type; values
// that do not fit simply never match a rule.
func normalizeAnswers(questions []questionnaire.Question, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, q := range questions {
		if q.Type != questionnaire.TypeDate {
			continue
		}
		if s, ok := out[q.ID].(string); ok {
			if d, ok := parseDate(s); ok {
				out[q.ID] = d
			}
		}
	}
	return out
}
