package services

import (
	"time"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

type ExportStore interface {
	ListSubmissions() ([]*Submission, error)
	GetSubmission(id string) (*Submission, error)
}

type ExportParams struct {
	Format string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store     ExportStore
	questions []questionnaire.Question
	now       func() time.Time
}

func NewExportService(store ExportStore, questions []questionnaire.Question) *ExportService {
	return &ExportService{
		store:     store,
		questions: questions,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportCSV renders every stored submission in the requested format.
func (s *ExportService) ExportCSV(params ExportParams) (*ExportResult, error) {
	format := params.Format
	if format == "" {
		format = "long"
	}
	if format != "long" && format != "wide" && format != "score" {
		return nil, NewInvalidError("unsupported format")
	}
	subs, err := s.store.ListSubmissions()
	if err != nil {
		return nil, err
	}

	switch format {
	case "long":
		b, err := ExportLongCSV(buildLongRows(subs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "long.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	case "wide":
		b, err := ExportWideCSV(subs, s.questions)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "responses.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	default:
		b, err := ExportScoreCSV(subs)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "score.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	}
}

// ExportJSON renders one submission as the downloadable result document.
func (s *ExportService) ExportJSON(id string) (*ExportResult, error) {
	if id == "" {
		return nil, NewInvalidError("submission id required")
	}
	sub, err := s.store.GetSubmission(id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	b, err := ExportResultJSON(sub, s.now())
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: "resultat_questionnaire.json", ContentType: "application/json", Data: b}, nil
}

func buildLongRows(subs []*Submission) []LongRow {
	out := []LongRow{}
	for _, s := range subs {
		for _, r := range s.Report.Rows {
			out = append(out, LongRow{
				SubmissionID: s.ID,
				QuestionID:   r.QuestionID,
				Block:        r.Block,
				Value:        FormatValue(r.Value),
				Color:        string(r.Color),
				Points:       r.Points,
				Weight:       r.Weight,
			})
		}
	}
	return out
}
