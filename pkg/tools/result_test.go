package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKPassesSmallResultsThrough(t *testing.T) {
	payload := map[string]any{"pod": "checkout-abc"}
	result := ok(payload)
	assert.True(t, result.OK)
	assert.Equal(t, payload, result.Result)
	assert.Empty(t, result.Error)
}

func TestFail(t *testing.T) {
	result := fail("namespace_required")
	assert.False(t, result.OK)
	assert.Equal(t, "namespace_required", result.Error)
	assert.Nil(t, result.Result)
}

func TestCompactTruncatesOversizedResults(t *testing.T) {
	big := map[string]any{"blob": strings.Repeat("x", maxResultBytes+1)}
	result := ok(big)

	truncated, isMap := result.Result.(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, true, truncated["truncated"])
	preview, _ := truncated["preview"].(string)
	assert.Len(t, preview, truncationPreview)
	assert.True(t, strings.HasPrefix(preview, `{"blob":`))
}

func TestCompactUnserializable(t *testing.T) {
	result := ok(map[string]any{"ch": make(chan int)})
	truncated, isMap := result.Result.(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, "unserializable result", truncated["preview"])
}
