package api

import "github.com/soaringjerry/BariCheck/internal/services"

// Store persists scored submissions. GetSubmission returns (nil, nil) for an
// unknown id; ListSubmissions returns submissions in the order they were added.
type Store interface {
	AddSubmission(s *services.Submission) error
	GetSubmission(id string) (*services.Submission, error)
	ListSubmissions() ([]*services.Submission, error)
}

var (
	_ Store                    = (*memoryStore)(nil)
	_ services.SubmissionStore = Store(nil)
	_ services.ExportStore     = Store(nil)
)
