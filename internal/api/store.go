package api

import (
	"errors"
	"sync"

	"github.com/soaringjerry/BariCheck/internal/services"
)

type memoryStore struct {
	mu          sync.RWMutex
	submissions map[string]*services.Submission
	order       []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		submissions: map[string]*services.Submission{},
		order:       []string{},
	}
}

// NewMemoryStore returns the in-process store used when no database is configured.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func (s *memoryStore) AddSubmission(sub *services.Submission) error {
	if sub == nil || sub.ID == "" {
		return errors.New("submission id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[sub.ID]; ok {
		return errors.New("duplicate submission id " + sub.ID)
	}
	s.submissions[sub.ID] = sub
	s.order = append(s.order, sub.ID)
	return nil
}

func (s *memoryStore) GetSubmission(id string) (*services.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissions[id], nil
}

func (s *memoryStore) ListSubmissions() ([]*services.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Submission, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.submissions[id])
	}
	return out, nil
}
