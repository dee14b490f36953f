package state

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"patientsurvey/pkg/survey"
)

// Session binds a browser session to the survey flow of one patient link.
type Session struct {
	ID        string
	ParamsKey string
	Flow      *survey.Flow
	CreatedAt time.Time

	lastSeen time.Time
}

// FlowFactory builds and starts the flow for a new session.
type FlowFactory func() (*survey.Flow, error)

// Store keeps sessions in memory, keyed by session id.
type Store struct {
	sessions map[string]*Session
	now      func() time.Time
	mu       sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the session with id and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, false
	}
	session.lastSeen = s.now()
	return session, true
}

// GetOrCreate returns the session for id when it was opened with the same
// patient link (paramsKey), so a reload resumes the flow. Otherwise a new
// session is created with factory under a freshly generated id, and any
// previous session under id is dropped. Ids the store did not issue are never
// adopted. The bool result reports creation.
func (s *Store) GetOrCreate(id, paramsKey string, factory FlowFactory) (*Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.sessions[id]
	if exists {
		if previous.ParamsKey == paramsKey {
			previous.lastSeen = s.now()
			return previous, false, nil
		}
		log.Printf("Patient link changed for session %s, starting a new flow", id)
	}

	flow, err := factory()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create survey flow: %w", err)
	}
	if flow == nil {
		return nil, false, fmt.Errorf("failed to create survey flow: factory returned nil")
	}

	if exists {
		delete(s.sessions, id)
	}
	id = uuid.New().String()
	now := s.now()
	session := &Session{
		ID:        id,
		ParamsKey: paramsKey,
		Flow:      flow,
		CreatedAt: now,
		lastSeen:  now,
	}
	s.sessions[id] = session
	log.Printf("Session %s created (state=%s)", id, flow.State())

	return session, true, nil
}

// Delete drops the session with id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, session := range s.sessions {
		if session.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("Swept %d idle sessions, %d remaining", removed, len(s.sessions))
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
