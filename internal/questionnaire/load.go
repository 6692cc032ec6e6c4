package questionnaire

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyID is returned when a question has no id.
var ErrEmptyID = errors.New("question id required")

// Load reads and validates the questionnaire document at path. JSON documents
// are accepted as well since they are valid YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questionnaire %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a questionnaire document and validates it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse questionnaire: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	for _, w := range doc.Warnings() {
		log.Printf("questionnaire: %s", w)
	}
	return &doc, nil
}

// Validate rejects documents the engine cannot key answers against. Unknown
// colors and comparators are tolerated; see Warnings.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Questions))
	for i, q := range d.Questions {
		id := q.ID
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("question #%d: %w", i+1, ErrEmptyID)
		}
		if id != strings.TrimSpace(id) {
			return fmt.Errorf("question %q: id has surrounding whitespace", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("question %q: duplicate id", id)
		}
		seen[id] = struct{}{}
		if q.EffectiveWeight() < 0 {
			return fmt.Errorf("question %q: negative weight %v", id, q.EffectiveWeight())
		}
	}
	for c, pts := range d.Metadata.ColorPoints {
		if pts < 0 {
			return fmt.Errorf("color_points[%s]: negative value %v", c, pts)
		}
	}
	if orange, red := d.Thresholds(); orange > red {
		return fmt.Errorf("global_thresholds: orange %v above red %v", orange, red)
	}
	return nil
}

// Warnings lists configuration anomalies that score as "no match" or zero
// points at evaluation time.
func (d *Document) Warnings() []string {
	var out []string
	points := d.ColorPoints()
	for _, q := range d.Questions {
		for i, r := range q.RiskRules {
			if _, ok := points[r.Color]; !ok {
				out = append(out, fmt.Sprintf("question %q rule #%d: color %q has no points, scores 0", q.ID, i+1, r.Color))
			}
			if r.Op != "" && !knownOp(r.Op) {
				out = append(out, fmt.Sprintf("question %q rule #%d: unknown comparator %q never matches", q.ID, i+1, r.Op))
			}
			if r.Range != nil && len(r.Range) != 2 {
				out = append(out, fmt.Sprintf("question %q rule #%d: range needs two bounds, got %d", q.ID, i+1, len(r.Range)))
			}
			if r.Equals == nil && r.Range == nil && (r.Op == "" || r.Threshold == nil) {
				out = append(out, fmt.Sprintf("question %q rule #%d: no predicate, never matches", q.ID, i+1))
			}
		}
	}
	return out
}

// ColorPoints returns the tier point table, falling back to DefaultColorPoints.
func (d *Document) ColorPoints() map[Color]float64 {
	src := d.Metadata.ColorPoints
	if src == nil {
		src = DefaultColorPoints
	}
	out := make(map[Color]float64, len(src))
	for c, p := range src {
		out[c] = p
	}
	return out
}

// CriticalIDs returns the escalation question ids, falling back to DefaultCriticalIDs.
func (d *Document) CriticalIDs() []string {
	if d.Metadata.CriticalIDs != nil {
		return append([]string(nil), d.Metadata.CriticalIDs...)
	}
	return append([]string(nil), DefaultCriticalIDs...)
}

// Thresholds returns the orange and red percentage cut-offs. Each bound
// missing from global_thresholds falls back to its default.
func (d *Document) Thresholds() (orange, red float64) {
	orange, red = DefaultOrangeThreshold, DefaultRedThreshold
	if t := d.Metadata.GlobalThreshold; t != nil {
		if t.Orange != nil {
			orange = *t.Orange
		}
		if t.Red != nil {
			red = *t.Red
		}
	}
	return orange, red
}

// Question looks up a question by id.
func (d *Document) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func knownOp(op string) bool {
	switch op {
	case OpGT, OpGE, OpEQ, OpLT, OpLE:
		return true
	}
	return false
}
