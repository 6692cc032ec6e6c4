package services

import (
	"time"

	"github.com/soaringjerry/BariCheck/internal/scoring"
)

// Patient identifies who filled the questionnaire. It is not scored.
type Patient struct {
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	VisitDate string `json:"visit_date"` // YYYY-MM-DD
}

// Submission is one scored answer set. Answers keep every submitted key,
// including the free-text detail fields that are not part of the questionnaire.
type Submission struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Patient    Patient        `json:"patient"`
	PatientKey string         `json:"patient_key,omitempty"`
	Answers    map[string]any `json:"answers"`
	Report     scoring.Report `json:"report"`
}
