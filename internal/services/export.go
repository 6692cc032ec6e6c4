package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
	"github.com/soaringjerry/BariCheck/internal/scoring"
)

// LongRow is one (submission, question) line of the long export.
type LongRow struct {
	SubmissionID string
	QuestionID   string
	Block        string
	Value        string
	Color        string
	Points       float64
	Weight       float64
}

// ExportLongCSV renders rows into a long-format CSV.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"submission_id", "question_id", "block", "value", "color", "points", "weight"})
	for _, r := range rows {
		rec := []string{
			r.SubmissionID,
			r.QuestionID,
			r.Block,
			r.Value,
			r.Color,
			formatNumber(r.Points),
			formatNumber(r.Weight),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

var wideFixedColumns = []string{
	"submission_id", "ts", "last_name", "first_name", "visit_date", "patient_key", "score_pct", "global_color",
}

// ExportWideCSV renders one row per submission: fixed patient/score columns,
// then every question in questionnaire order, then the extra detail keys
// found in the answers, sorted.
func ExportWideCSV(subs []*Submission, questions []questionnaire.Question) ([]byte, error) {
	known := make(map[string]struct{}, len(questions))
	qids := make([]string, 0, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
		qids = append(qids, q.ID)
	}
	extraSet := map[string]struct{}{}
	for _, s := range subs {
		for k := range s.Answers {
			if _, ok := known[k]; !ok {
				extraSet[k] = struct{}{}
			}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := make([]string, 0, len(wideFixedColumns)+len(qids)+len(extras))
	header = append(header, wideFixedColumns...)
	header = append(header, qids...)
	header = append(header, extras...)
	_ = w.Write(header)
	for _, s := range subs {
		row := make([]string, 0, len(header))
		row = append(row,
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.Patient.LastName,
			s.Patient.FirstName,
			s.Patient.VisitDate,
			s.PatientKey,
			ScorePct(s.Report.Summary.Percentage).StringFixed(2),
			string(s.Report.Summary.GlobalColor),
		)
		for _, id := range qids {
			row = append(row, FormatValue(s.Answers[id]))
		}
		for _, id := range extras {
			row = append(row, FormatValue(s.Answers[id]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportScoreCSV renders the aggregate score of each submission.
func ExportScoreCSV(subs []*Submission) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"submission_id", "total_points", "max_points", "percentage", "global_color", "escalated"})
	for _, s := range subs {
		sum := s.Report.Summary
		rec := []string{
			s.ID,
			formatNumber(sum.TotalPoints),
			formatNumber(sum.MaxPoints),
			ScorePct(sum.Percentage).StringFixed(2),
			string(sum.GlobalColor),
			strconv.FormatBool(sum.Escalated),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ResultPayload is the downloadable JSON document of one submission.
type ResultPayload struct {
	GeneratedAt  string                   `json:"generated_at"`
	SubmissionID string                   `json:"submission_id"`
	Patient      Patient                  `json:"patient"`
	PatientKey   string                   `json:"patient_key,omitempty"`
	ScorePct     float64                  `json:"score_pct"`
	GlobalColor  questionnaire.Color      `json:"global_color"`
	Escalated    bool                     `json:"escalated"`
	Answers      map[string]any           `json:"answers"`
	Rows         []scoring.QuestionResult `json:"rows"`
}

// ExportResultJSON renders one submission as an indented JSON document.
func ExportResultJSON(s *Submission, generatedAt time.Time) ([]byte, error) {
	payload := ResultPayload{
		GeneratedAt:  generatedAt.Format(time.RFC3339),
		SubmissionID: s.ID,
		Patient:      s.Patient,
		PatientKey:   s.PatientKey,
		ScorePct:     ScorePct(s.Report.Summary.Percentage).InexactFloat64(),
		GlobalColor:  s.Report.Summary.GlobalColor,
		Escalated:    s.Report.Summary.Escalated,
		Answers:      PortableAnswers(s.Answers),
		Rows:         PortableReport(s.Report).Rows,
	}
	return json.MarshalIndent(payload, "", "  ")
}

// ScorePct rounds a percentage to two decimals.
func ScorePct(pct float64) decimal.Decimal {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(pct).Round(2)
}

// FormatValue renders an answer for CSV cells: Oui/Non for booleans, ISO
// dates, integral numbers without decimals and lists joined with ", ".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "Oui"
		}
		return "Non"
	case time.Time:
		return x.Format(dateLayout)
	case string:
		return x
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, FormatValue(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// jsonValue keeps dates as plain YYYY-MM-DD strings in JSON output.
func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateLayout)
	}
	return v
}

// PortableAnswers copies answers with dates rendered as YYYY-MM-DD so they
// survive a JSON round trip unchanged.
func PortableAnswers(answers map[string]any) map[string]any {
	out := make(map[string]any, len(answers))
	for k, v := range answers {
		out[k] = jsonValue(v)
	}
	return out
}

// PortableReport is PortableAnswers for the values echoed in report rows.
func PortableReport(rep scoring.Report) scoring.Report {
	rows := make([]scoring.QuestionResult, len(rep.Rows))
	for i, r := range rep.Rows {
		r.Value = jsonValue(r.Value)
		rows[i] = r
	}
	rep.Rows = rows
	return rep
}
