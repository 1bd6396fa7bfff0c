package models

import (
	"strings"
	"time"
)

// AlertState is the normalized lifecycle state of an alert event.
type AlertState string

const (
	AlertStateFiring   AlertState = "firing"
	AlertStateResolved AlertState = "resolved"
	AlertStateUnknown  AlertState = "unknown"
)

// EndsAtKind describes how the ends_at timestamp of an alert should be read.
type EndsAtKind string

const (
	EndsAtExpires  EndsAtKind = "expires_at"
	EndsAtResolved EndsAtKind = "resolved_at"
	EndsAtUnknown  EndsAtKind = "unknown"
)

// AlertEvent is one normalized alert from an Alertmanager-style webhook.
// StartsAt may be the zero time when the source omitted it; EndsAt is the
// zero time while the alert is still firing.
type AlertEvent struct {
	Fingerprint  string            `json:"fingerprint"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"starts_at,omitzero"`
	EndsAt       time.Time         `json:"ends_at,omitzero"`
	GeneratorURL string            `json:"generator_url,omitempty"`
	RawState     string            `json:"raw_state"`

	NormalizedState AlertState `json:"normalized_state"`
	EndsAtKind      EndsAtKind `json:"ends_at_kind"`
}

// NormalizeState maps a raw Alertmanager state string to the normalized
// lifecycle state and the matching ends_at interpretation.
func NormalizeState(raw string) (AlertState, EndsAtKind) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "suppressed", "unprocessed":
		return AlertStateFiring, EndsAtExpires
	case "inactive", "resolved":
		return AlertStateResolved, EndsAtResolved
	default:
		return AlertStateUnknown, EndsAtUnknown
	}
}

// Normalize fills the derived state fields from RawState.
func (a *AlertEvent) Normalize() {
	a.NormalizedState, a.EndsAtKind = NormalizeState(a.RawState)
	if a.Labels == nil {
		a.Labels = map[string]string{}
	}
	if a.Annotations == nil {
		a.Annotations = map[string]string{}
	}
}

// Name returns the alertname label, or empty when unset.
func (a *AlertEvent) Name() string {
	return a.Labels["alertname"]
}
