package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProviderName selects which LLM backend the client factory builds.
type LLMProviderName string

const (
	LLMProviderVertexAI  LLMProviderName = "vertexai"
	LLMProviderAnthropic LLMProviderName = "anthropic"
)

// LLMSettings is the shared LLM configuration record.
type LLMSettings struct {
	Provider        LLMProviderName
	Model           string
	Temperature     float64       // [0,1]
	MaxOutputTokens int           // [64,8192]
	Timeout         time.Duration // [5s,300s], default 180s
	Mock            bool
	Enabled         bool
	IncludeLogs     bool

	GoogleCloudProject  string
	GoogleCloudLocation string
	AnthropicAPIKey     string
}

// Settings is the process configuration read from the environment.
// All keys are optional; absent keys fall back to the documented defaults.
type Settings struct {
	ClusterName string

	LogsURL     string
	LogsBackend string // "loki" | "victorialogs" | "" (auto-detect)
	LogsTimeout time.Duration

	AWSRegion             string
	AWSEvidenceEnabled    bool
	GitHubEvidenceEnabled bool
	CloudTrailLookback    time.Duration
	CloudTrailMaxEvents   int

	GitHubAppID             string
	GitHubAppPrivateKey     string
	GitHubAppInstallationID string
	GitHubDefaultOrg        string

	LLM LLMSettings

	// InCluster reports whether the process runs inside a Kubernetes pod.
	InCluster bool
}

// ParseBool accepts the documented truthy set {1, true, yes, y, on},
// case-insensitive. Everything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring non-numeric configuration value", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Ignoring non-numeric configuration value", "key", key, "value", v)
		return fallback
	}
	return f
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Load reads Settings from the environment, applying defaults and bounds.
func Load() *Settings {
	logsTimeout := clampInt(getEnvInt("LOGS_TIMEOUT_SECONDS", 10), 1, 60)
	llmTimeout := clampInt(getEnvInt("LLM_TIMEOUT_SECONDS", 180), 5, 300)

	s := &Settings{
		ClusterName: os.Getenv("CLUSTER_NAME"),

		LogsURL:     os.Getenv("LOGS_URL"),
		LogsBackend: strings.ToLower(os.Getenv("LOGS_BACKEND")),
		LogsTimeout: time.Duration(logsTimeout) * time.Second,

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSEvidenceEnabled:    ParseBool(os.Getenv("AWS_EVIDENCE_ENABLED")),
		GitHubEvidenceEnabled: ParseBool(os.Getenv("GITHUB_EVIDENCE_ENABLED")),
		CloudTrailLookback:    time.Duration(getEnvInt("AWS_CLOUDTRAIL_LOOKBACK_MINUTES", 30)) * time.Minute,
		CloudTrailMaxEvents:   getEnvInt("AWS_CLOUDTRAIL_MAX_EVENTS", 50),

		GitHubAppID:             os.Getenv("GITHUB_APP_ID"),
		GitHubAppPrivateKey:     os.Getenv("GITHUB_APP_PRIVATE_KEY"),
		GitHubAppInstallationID: os.Getenv("GITHUB_APP_INSTALLATION_ID"),
		GitHubDefaultOrg:        os.Getenv("GITHUB_DEFAULT_ORG"),

		LLM: LLMSettings{
			Provider:        LLMProviderName(getEnv("LLM_PROVIDER", string(LLMProviderVertexAI))),
			Model:           os.Getenv("LLM_MODEL"),
			Temperature:     clampFloat(getEnvFloat("LLM_TEMPERATURE", 0.2), 0, 1),
			MaxOutputTokens: clampInt(getEnvInt("LLM_MAX_OUTPUT_TOKENS", 2048), 64, 8192),
			Timeout:         time.Duration(llmTimeout) * time.Second,
			Mock:            ParseBool(os.Getenv("LLM_MOCK")),
			Enabled:         ParseBool(os.Getenv("LLM_ENABLED")),
			IncludeLogs:     ParseBool(os.Getenv("LLM_INCLUDE_LOGS")),

			GoogleCloudProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
			GoogleCloudLocation: os.Getenv("GOOGLE_CLOUD_LOCATION"),
			AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		},

		InCluster: os.Getenv("KUBERNETES_SERVICE_HOST") != "",
	}

	return s
}
