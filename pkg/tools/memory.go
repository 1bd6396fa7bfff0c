package tools

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// CaseSummary is one remembered past investigation.
type CaseSummary struct {
	CaseID    string    `json:"case_id"`
	Family    string    `json:"family,omitempty"`
	Workload  string    `json:"workload,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Skill is one remembered remediation recipe.
type Skill struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	AppliesTo   []string `json:"applies_to,omitempty"`
}

// MemoryStore is the in-process case and skill catalog behind the memory.*
// tools. Process-lifetime only; durable memory lives outside this service.
type MemoryStore struct {
	mu     sync.RWMutex
	cases  []CaseSummary
	skills []Skill
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// RememberCase records a finished investigation, newest first.
func (m *MemoryStore) RememberCase(c CaseSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases = append([]CaseSummary{c}, m.cases...)
}

// AddSkill registers a remediation recipe.
func (m *MemoryStore) AddSkill(s Skill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills = append(m.skills, s)
}

// SimilarCases returns past cases sharing the family or workload, newest
// first, bounded by limit.
func (m *MemoryStore) SimilarCases(family, workload string, limit int) []CaseSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CaseSummary
	for _, c := range m.cases {
		if (family != "" && c.Family == family) || (workload != "" && c.Workload == workload) {
			out = append(out, c)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Skills returns skills applicable to the family, then the rest, bounded by
// limit.
func (m *MemoryStore) Skills(family string, limit int) []Skill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Skill, 0, limit)
	for _, s := range m.skills {
		if appliesTo(s, family) {
			out = append(out, s)
		}
	}
	for _, s := range m.skills {
		if len(out) >= limit {
			break
		}
		if !appliesTo(s, family) {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func appliesTo(s Skill, family string) bool {
	if family == "" {
		return false
	}
	for _, f := range s.AppliesTo {
		if strings.EqualFold(f, family) {
			return true
		}
	}
	return false
}
