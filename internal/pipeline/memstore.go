package pipeline

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store used when no database is configured.
// State does not survive restarts, which also means no stale-extracting
// recovery is needed.
type MemoryStore struct {
	mu       sync.Mutex
	statuses map[string]Status
	outcomes map[string]*Outcome
	failures map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]Status),
		outcomes: make(map[string]*Outcome),
		failures: make(map[string]string),
	}
}

func (s *MemoryStore) Status(ctx context.Context, videoID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.statuses[videoID]; ok {
		return st, nil
	}
	return StatusPending, nil
}

func (s *MemoryStore) BeginExtraction(ctx context.Context, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[videoID]
	if !ok {
		st = StatusPending
	}
	if st == StatusExtracting || st == StatusCompleted {
		return false, nil
	}
	s.statuses[videoID] = StatusExtracting
	delete(s.failures, videoID)
	return true, nil
}

func (s *MemoryStore) Complete(ctx context.Context, videoID string, outcome *Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[videoID] = StatusCompleted
	s.outcomes[videoID] = outcome
	return nil
}

func (s *MemoryStore) Fail(ctx context.Context, videoID string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[videoID] = StatusFailed
	s.failures[videoID] = msg
	return nil
}

// Get returns the stored state for videoID, or nil when it has never been
// seen.
func (s *MemoryStore) Get(ctx context.Context, videoID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[videoID]
	if !ok {
		return nil, nil
	}
	return &Record{
		VideoID: videoID,
		Status:  st,
		Outcome: s.outcomes[videoID],
		Error:   s.failures[videoID],
	}, nil
}

// Outcome returns the stored outcome for a completed video, or nil.
func (s *MemoryStore) Outcome(videoID string) *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes[videoID]
}

// FailureMessage returns the persisted failure message, or "".
func (s *MemoryStore) FailureMessage(videoID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[videoID]
}
