package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
	"github.com/soaringjerry/BariCheck/internal/scoring"
)

// SubmissionStore abstracts persistence operations required by SubmissionService.
type SubmissionStore interface {
	AddSubmission(s *Submission) error
	GetSubmission(id string) (*Submission, error)
}

// Scorer is the slice of scoring.Engine the workflow needs.
type Scorer interface {
	Questions() []questionnaire.Question
	Score(answers map[string]any) *scoring.Report
}

// SubmissionObserver is notified after a submission is stored.
type SubmissionObserver interface {
	ObserveSubmission(s *Submission)
}

// SubmitRequest transports the decoded handler input into the service layer.
type SubmitRequest struct {
	Patient Patient
	Answers map[string]any
}

// SubmitResult is what the HTTP layer hands back to the patient.
type SubmitResult struct {
	Submission *Submission
	Receipt    string
}

// SubmissionService scores answer sets and hands them to the store.
type SubmissionService struct {
	store       SubmissionStore
	scorer      Scorer
	receipts    *ReceiptSigner
	pseudonyms  *Pseudonymizer
	observers   []SubmissionObserver
	now         func() time.Time
	idGenerator func() string
}

// SubmissionOption customises a SubmissionService.
type SubmissionOption func(*SubmissionService)

// WithReceipts signs a receipt for every stored submission.
func WithReceipts(r *ReceiptSigner) SubmissionOption {
	return func(s *SubmissionService) { s.receipts = r }
}

// WithPseudonyms derives a patient key for every stored submission.
func WithPseudonyms(p *Pseudonymizer) SubmissionOption {
	return func(s *SubmissionService) { s.pseudonyms = p }
}

// WithObserver registers an observer, typically metrics.
func WithObserver(o SubmissionObserver) SubmissionOption {
	return func(s *SubmissionService) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewSubmissionService constructs a service bound to the provided store and scorer.
func NewSubmissionService(store SubmissionStore, scorer Scorer, opts ...SubmissionOption) *SubmissionService {
	s := &SubmissionService{
		store:       store,
		scorer:      scorer,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit scores req, stores the submission and signs a receipt when a signer
// is configured.
func (s *SubmissionService) Submit(req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil || s.scorer == nil {
		return nil, errors.New("submission service is not configured")
	}
	now := s.now()

	patient, err := normalizePatient(req.Patient, now)
	if err != nil {
		return nil, err
	}
	answers := normalizeAnswers(s.scorer.Questions(), req.Answers)

	sub := &Submission{
		ID:        s.idGenerator(),
		CreatedAt: now,
		Patient:   patient,
		Answers:   answers,
		Report:    *s.scorer.Score(answers),
	}
	if s.pseudonyms != nil {
		sub.PatientKey = s.pseudonyms.Key(patient)
	}

	if err := s.store.AddSubmission(sub); err != nil {
		return nil, err
	}
	for _, o := range s.observers {
		o.ObserveSubmission(sub)
	}
	log.Printf("submission: stored %s global=%s pct=%.1f escalated=%t",
		sub.ID, sub.Report.Summary.GlobalColor, sub.Report.Summary.Percentage, sub.Report.Summary.Escalated)

	res := &SubmitResult{Submission: sub}
	if s.receipts != nil {
		tok, err := s.receipts.Sign(sub)
		if err != nil {
			// the submission is already stored; a missing receipt is not fatal
			log.Printf("submission: sign receipt %s: %v", sub.ID, err)
		} else {
			res.Receipt = tok
		}
	}
	return res, nil
}

// Get returns a stored submission.
func (s *SubmissionService) Get(id string) (*Submission, error) {
	id = strings.TrimSpace(id)
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
	return sub, nil
}

func normalizePatient(p Patient, now time.Time) (Patient, error) {
	p.LastName = strings.TrimSpace(p.LastName)
	p.FirstName = strings.TrimSpace(p.FirstName)
	visit := strings.TrimSpace(p.VisitDate)
	if visit == "" {
		p.VisitDate = now.Format(dateLayout)
		return p, nil
	}
	d, ok := parseDate(visit)
	if !ok {
		return p, NewInvalidError("visit_date must be YYYY-MM-DD or DD/MM/YYYY")
	}
	p.VisitDate = d.Format(dateLayout)
	return p, nil
}
