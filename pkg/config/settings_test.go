package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"1", "true", "yes", "y", "on", "TRUE", "Yes", " on "} {
		assert.True(t, ParseBool(truthy), truthy)
	}
	for _, falsy := range []string{"", "0", "false", "no", "off", "enabled", "2"} {
		assert.False(t, ParseBool(falsy), falsy)
	}
}

func TestLoadDefaults(t *testing.T) {
	// Settings reads straight from the environment; clear the keys the
	// assertions depend on.
	for _, key := range []string{
		"CLUSTER_NAME", "LOGS_URL", "LOGS_BACKEND", "LOGS_TIMEOUT_SECONDS",
		"AWS_REGION", "AWS_EVIDENCE_ENABLED", "GITHUB_EVIDENCE_ENABLED",
		"LLM_PROVIDER", "LLM_TEMPERATURE", "LLM_MAX_OUTPUT_TOKENS",
		"LLM_TIMEOUT_SECONDS", "LLM_ENABLED", "KUBERNETES_SERVICE_HOST",
	} {
		t.Setenv(key, "")
	}

	s := Load()

	assert.Equal(t, 10*time.Second, s.LogsTimeout)
	assert.Equal(t, "us-east-1", s.AWSRegion)
	assert.False(t, s.AWSEvidenceEnabled)
	assert.Equal(t, 30*time.Minute, s.CloudTrailLookback)
	assert.Equal(t, 50, s.CloudTrailMaxEvents)
	assert.Equal(t, LLMProviderVertexAI, s.LLM.Provider)
	assert.InDelta(t, 0.2, s.LLM.Temperature, 1e-9)
	assert.Equal(t, 2048, s.LLM.MaxOutputTokens)
	assert.Equal(t, 180*time.Second, s.LLM.Timeout)
	assert.False(t, s.LLM.Enabled)
	assert.False(t, s.InCluster)
}

func TestLoadBoundsAndOverrides(t *testing.T) {
	t.Setenv("LOGS_TIMEOUT_SECONDS", "900")
	t.Setenv("LLM_TIMEOUT_SECONDS", "1")
	t.Setenv("LLM_TEMPERATURE", "7.5")
	t.Setenv("LLM_MAX_OUTPUT_TOKENS", "16")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("AWS_EVIDENCE_ENABLED", "yes")
	t.Setenv("CLUSTER_NAME", "prod-east")

	s := Load()

	assert.Equal(t, 60*time.Second, s.LogsTimeout)
	assert.Equal(t, 5*time.Second, s.LLM.Timeout)
	assert.InDelta(t, 1.0, s.LLM.Temperature, 1e-9)
	assert.Equal(t, 64, s.LLM.MaxOutputTokens)
	assert.Equal(t, LLMProviderAnthropic, s.LLM.Provider)
	assert.True(t, s.AWSEvidenceEnabled)
	assert.Equal(t, "prod-east", s.ClusterName)
}

func TestLoadIgnoresNonNumericValues(t *testing.T) {
	t.Setenv("LOGS_TIMEOUT_SECONDS", "soon")
	t.Setenv("LLM_TEMPERATURE", "warm")

	s := Load()

	assert.Equal(t, 10*time.Second, s.LogsTimeout)
	assert.InDelta(t, 0.2, s.LLM.Temperature, 1e-9)
}
