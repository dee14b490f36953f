// Package memstore keeps survey responses in memory. It backs the service
// when no database is configured and doubles as a scriptable store in tests.
package memstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"patientsurvey/pkg/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	mu       sync.Mutex
	rows     []storage.SurveyResponse
	latency  time.Duration
	now      func() time.Time
	failNext error

	// Inserts counts Insert calls, including failed ones.
	Inserts int
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store. A positive latency delays every insert.
func New(latency time.Duration) *Store {
	return &Store{
		latency: latency,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores rec and assigns id and creation time.
func (s *Store) Insert(ctx context.Context, rec storage.SubmissionRecord) (storage.SurveyResponse, error) {
	s.mu.Lock()
	s.Inserts++
	s.mu.Unlock()

	if err := rec.Validate(); err != nil {
		return storage.SurveyResponse{}, err
	}

	s.mu.Lock()
	failure := s.failNext
	s.failNext = nil
	s.mu.Unlock()

	log.Printf("[memstore.Insert] Mock saving survey response (dept=%s, visit=%s, answered=%d)", rec.Department, rec.VisitDate, rec.Answered())

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return storage.SurveyResponse{}, ctx.Err()
		case <-timer.C:
		}
	}
	if failure != nil {
		return storage.SurveyResponse{}, failure
	}
	if err := ctx.Err(); err != nil {
		return storage.SurveyResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp := storage.SurveyResponse{
		ID:               uuid.New().String(),
		SubmissionRecord: copyRecord(rec),
		CreatedAt:        s.now(),
	}
	s.rows = append(s.rows, resp)
	return resp, nil
}

// List returns stored responses matching filter, newest first.
func (s *Store) List(ctx context.Context, filter storage.ListFilter) ([]storage.SurveyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.SurveyResponse, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		if filter.Matches(s.rows[i]) {
			out = append(out, s.rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Fail makes the next Insert return err.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("memstore: scripted failure")
	}
	s.failNext = err
}

// SetClock overrides the creation timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Len returns the number of stored responses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func copyRecord(rec storage.SubmissionRecord) storage.SubmissionRecord {
	out := rec
	for i, a := range rec.Answers {
		if a != nil {
			out.Answers[i] = storage.IntPtr(*a)
		}
	}
	return out
}
