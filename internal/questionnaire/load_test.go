package questionnaire

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleYAML = `
metadata:
  title: Suivi bariatrique
  color_points: {white: 0, orange: 1, red: 3}
questions:
  - id: reoperation
    type: yesno
    block: Chirurgie
    risk_rules:
      - {equals: true, color: red}
  - id: soucis_signal
    type: yesno
    weight: 0.5
    risk_rules:
      - {equals: false, color: white}
      - {equals: true, color: orange}
  - id: poids_perdu
    type: numeric
    weight: 2
    risk_rules:
      - {range: [0, 5], color: red}
      - {op: "<", threshold: 15, color: orange}
  - id: constitution
    type: select
    options: [aliments, mousse/glaires]
    risk_rules:
      - {equals: mousse/glaires}
      - {equals: null, color: orange}
  - id: commentaire
    type: text
`

func TestParse_Sample(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(doc.Questions))
	}
	if doc.Metadata.Title != "Suivi bariatrique" || doc.ColorPoints()[Red] != 3 {
		t.Fatalf("metadata mismatch: %+v", doc.Metadata)
	}

	reop := doc.Questions[0]
	if reop.EffectiveWeight() != 1 {
		t.Fatalf("reoperation: expected default weight 1, got %v", reop.EffectiveWeight())
	}
	if len(reop.RiskRules) != 1 || reop.RiskRules[0].Equals == nil || reop.RiskRules[0].Equals.Value != true {
		t.Fatalf("reoperation rules mismatch: %+v", reop.RiskRules)
	}

	soucis := doc.Questions[1]
	if soucis.EffectiveWeight() != 0.5 {
		t.Fatalf("soucis_signal: expected weight 0.5, got %v", soucis.EffectiveWeight())
	}
	if soucis.RiskRules[0].Equals == nil || soucis.RiskRules[0].Equals.Value != false {
		t.Fatalf("equals: false must be kept, got %+v", soucis.RiskRules[0])
	}

	poids := doc.Questions[2]
	if poids.RiskRules[0].Equals != nil || !reflect.DeepEqual(poids.RiskRules[0].Range, []float64{0, 5}) {
		t.Fatalf("range rule mismatch: %+v", poids.RiskRules[0])
	}
	if th := poids.RiskRules[1]; th.Op != OpLT || th.Threshold == nil || *th.Threshold != 15 {
		t.Fatalf("threshold rule mismatch: %+v", th)
	}

	constitution := doc.Questions[3]
	if constitution.RiskRules[0].Color != White {
		t.Fatalf("missing color should default to white, got %q", constitution.RiskRules[0].Color)
	}
	if eq := constitution.RiskRules[1].Equals; eq == nil || eq.Value != nil {
		t.Fatalf("equals: null must be kept, got %+v", eq)
	}

	if doc.Questions[4].Scored() {
		t.Fatalf("text question without rules must not be scored")
	}
}

func TestParse_IntegerLiteralsAreFloats(t *testing.T) {
	doc, err := Parse([]byte(`
questions:
  - id: repas
    type: numeric
    risk_rules:
      - {equals: 3, color: orange}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := doc.Questions[0].RiskRules[0].Equals.Value; got != 3.0 {
		t.Fatalf("expected float64 3, got %#v", got)
	}
}

func TestParse_QuotedNumbers(t *testing.T) {
	doc, err := Parse([]byte(`
questions:
  - id: vomissements_freq
    risk_rules:
      - {op: ">=", threshold: '5', color: red}
      - {range: ['1', " 4 "], color: orange}
      - {op: ">", threshold: null, color: orange}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rules := doc.Questions[0].RiskRules
	if rules[0].Threshold == nil || *rules[0].Threshold != 5 {
		t.Fatalf("quoted threshold: got %+v", rules[0])
	}
	if !reflect.DeepEqual(rules[1].Range, []float64{1, 4}) {
		t.Fatalf("quoted range: got %v", rules[1].Range)
	}
	if rules[2].Threshold != nil {
		t.Fatalf("null threshold should stay unset, got %v", *rules[2].Threshold)
	}
}

func TestParse_JSONDocument(t *testing.T) {
	doc, err := Parse([]byte(`{"questions":[{"id":"a","type":"yesno","risk_rules":[{"equals":true,"color":"red"},{"op":">","threshold":"2.5","color":"orange"}]}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Questions) != 1 || doc.Questions[0].RiskRules[0].Color != Red {
		t.Fatalf("unexpected document: %+v", doc.Questions)
	}
	if th := doc.Questions[0].RiskRules[1].Threshold; th == nil || *th != 2.5 {
		t.Fatalf("expected threshold 2.5 from JSON string, got %v", th)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	doc, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Questions) != 0 {
		t.Fatalf("expected no questions, got %d", len(doc.Questions))
	}
	if !reflect.DeepEqual(doc.ColorPoints(), DefaultColorPoints) {
		t.Fatalf("expected default points, got %v", doc.ColorPoints())
	}
	if !reflect.DeepEqual(doc.CriticalIDs(), DefaultCriticalIDs) {
		t.Fatalf("expected default critical ids, got %v", doc.CriticalIDs())
	}
	if orange, red := doc.Thresholds(); orange != 34 || red != 67 {
		t.Fatalf("expected 34/67, got %v/%v", orange, red)
	}
}

func TestParse_PartialThresholds(t *testing.T) {
	cases := []struct {
		name        string
		yaml        string
		orange, red float64
	}{
		{"orange only", "metadata:\n  global_thresholds:\n    orange: 40\nquestions: []\n", 40, 67},
		{"red only", "metadata:\n  global_thresholds: {red: 80}\n", 34, 80},
		{"both", "metadata:\n  global_thresholds: {orange: 20, red: 50}\n", 20, 50},
		{"empty block", "metadata:\n  global_thresholds: {}\n", 34, 67},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc, err := Parse([]byte(c.yaml))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if orange, red := doc.Thresholds(); orange != c.orange || red != c.red {
				t.Fatalf("expected %v/%v, got %v/%v", c.orange, c.red, orange, red)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty id":             "questions:\n  - {type: text}\n",
		"blank id":             "questions:\n  - {id: '  '}\n",
		"padded id":            "questions:\n  - {id: ' reoperation'}\n",
		"duplicate id":         "questions:\n  - {id: a}\n  - {id: a}\n",
		"negative weight":      "questions:\n  - {id: a, weight: -1}\n",
		"negative points":      "metadata:\n  color_points: {red: -2}\n",
		"bad threshold":        "questions:\n  - {id: a, risk_rules: [{op: '>', threshold: beaucoup}]}\n",
		"bad range bound":      "questions:\n  - {id: a, risk_rules: [{range: [1, beaucoup]}]}\n",
		"range not a list":     "questions:\n  - {id: a, risk_rules: [{range: 3}]}\n",
		"orange above red":     "metadata:\n  global_thresholds: {orange: 70, red: 50}\n",
		"orange above default": "metadata:\n  global_thresholds: {orange: 90}\n",
		"not yaml":             "questions: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate_EmptyIDError(t *testing.T) {
	doc := &Document{Questions: []Question{{ID: ""}}}
	if err := doc.Validate(); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestWarnings(t *testing.T) {
	doc, err := Parse([]byte(`
questions:
  - id: a
    risk_rules:
      - {equals: true, color: purple}
      - {op: "=>", threshold: 1, color: red}
      - {range: [1], color: red}
      - {color: orange}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := doc.Warnings(); len(got) != 4 {
		t.Fatalf("expected 4 warnings, got %d: %v", len(got), got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	q, ok := doc.Question("poids_perdu")
	if !ok || q.EffectiveWeight() != 2 {
		t.Fatalf("poids_perdu lookup: %v %+v", ok, q)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestCriticalIDsOverride(t *testing.T) {
	doc := &Document{Metadata: Metadata{CriticalIDs: []string{}}}
	if got := doc.CriticalIDs(); len(got) != 0 {
		t.Fatalf("explicit empty list must disable escalation, got %v", got)
	}
}

func TestLoad_BundledConfig(t *testing.T) {
	doc, err := Load(filepath.Join("..", "..", "config", "questions.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w := doc.Warnings(); len(w) != 0 {
		t.Fatalf("bundled config has warnings: %v", w)
	}
	ids := doc.CriticalIDs()
	if !reflect.DeepEqual(ids, []string{"rehospitalisation", "reoperation"}) {
		t.Fatalf("unexpected critical ids: %v", ids)
	}
	for _, id := range ids {
		if _, ok := doc.Question(id); !ok {
			t.Fatalf("critical question %s must be configured", id)
		}
	}
}
