package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		raw        string
		wantState  AlertState
		wantEndsAt EndsAtKind
	}{
		{"active", AlertStateFiring, EndsAtExpires},
		{"suppressed", AlertStateFiring, EndsAtExpires},
		{"unprocessed", AlertStateFiring, EndsAtExpires},
		{"inactive", AlertStateResolved, EndsAtResolved},
		{"resolved", AlertStateResolved, EndsAtResolved},
		{"ACTIVE", AlertStateFiring, EndsAtExpires},
		{"  Resolved ", AlertStateResolved, EndsAtResolved},
		{"pending", AlertStateUnknown, EndsAtUnknown},
		{"", AlertStateUnknown, EndsAtUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			state, endsAt := NormalizeState(tt.raw)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantEndsAt, endsAt)
		})
	}
}

func TestAlertEventNormalize(t *testing.T) {
	event := AlertEvent{RawState: "active"}
	event.Normalize()

	assert.Equal(t, AlertStateFiring, event.NormalizedState)
	assert.Equal(t, EndsAtExpires, event.EndsAtKind)
	assert.NotNil(t, event.Labels)
	assert.NotNil(t, event.Annotations)
}

func TestAlertEventName(t *testing.T) {
	event := AlertEvent{Labels: map[string]string{"alertname": "KubePodCrashLooping"}}
	assert.Equal(t, "KubePodCrashLooping", event.Name())

	empty := AlertEvent{}
	assert.Equal(t, "", empty.Name())
}
