package tools

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is one proposed (never executed here) remediation.
type Action struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	Type       string    `json:"type"`
	Target     string    `json:"target,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ProposedAt time.Time `json:"proposed_at"`
}

// ActionStore keeps proposed actions per case, in memory, under a mutex.
type ActionStore struct {
	mu     sync.RWMutex
	byCase map[string][]Action
}

// NewActionStore returns an empty store.
func NewActionStore() *ActionStore {
	return &ActionStore{byCase: map[string][]Action{}}
}

// List returns the actions proposed for one case, oldest first.
func (s *ActionStore) List(caseID string) []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actions := s.byCase[caseID]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Propose records a new action, enforcing the per-case cap. Returns the
// stored action and "" on success, or an error code.
func (s *ActionStore) Propose(caseID, actionType, target, reason string, maxPerCase int) (Action, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerCase > 0 && len(s.byCase[caseID]) >= maxPerCase {
		return Action{}, "action_limit_reached"
	}
	action := Action{
		ID:         uuid.NewString(),
		CaseID:     caseID,
		Type:       actionType,
		Target:     target,
		Reason:     reason,
		ProposedAt: time.Now().UTC(),
	}
	s.byCase[caseID] = append(s.byCase[caseID], action)
	return action, ""
}
