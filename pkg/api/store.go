package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sleuthops/sleuth/pkg/models"
)

// SessionStatus is the lifecycle state of one accepted alert event.
type SessionStatus string

const (
	SessionQueued    SessionStatus = "queued"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session tracks one webhook alert event through its investigation.
type Session struct {
	ID            string                `json:"session_id"`
	Status        SessionStatus         `json:"status"`
	AlertName     string                `json:"alert_name"`
	CreatedAt     time.Time             `json:"created_at"`
	CompletedAt   time.Time             `json:"completed_at,omitzero"`
	Investigation *models.Investigation `json:"-"`
}

// SessionStore is an in-memory session index with a bounded history.
// There is no persistence within the core; restarting the process drops
// all sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	maxKeep  int
}

const defaultMaxSessions = 200

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		maxKeep:  defaultMaxSessions,
	}
}

// Create registers a new queued session and returns it.
func (s *SessionStore) Create(alertName string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Status:    SessionQueued,
		AlertName: alertName,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	for len(s.order) > s.maxKeep {
		delete(s.sessions, s.order[0])
		s.order = s.order[1:]
	}
	return sess
}

func (s *SessionStore) SetRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[id]; sess != nil {
		sess.Status = SessionRunning
	}
}

// Complete attaches the finished investigation to the session.
func (s *SessionStore) Complete(id string, inv *models.Investigation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[id]; sess != nil {
		sess.Status = SessionCompleted
		sess.CompletedAt = time.Now().UTC()
		sess.Investigation = inv
	}
}

func (s *SessionStore) Fail(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[id]; sess != nil {
		sess.Status = SessionFailed
		sess.CompletedAt = time.Now().UTC()
	}
}

// Get returns a shallow copy of the session, or nil when unknown.
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, found := s.sessions[id]
	if !found {
		return nil
	}
	copied := *sess
	return &copied
}

// List returns sessions newest-first.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		copied := *s.sessions[s.order[i]]
		out = append(out, &copied)
	}
	return out
}
