package models

// Family is the canonical incident classification that drives collection,
// enrichment, and scoring. The set is closed.
type Family string

const (
	FamilyCrashloop      Family = "crashloop"
	FamilyCPUThrottling  Family = "cpu_throttling"
	FamilyPodNotHealthy  Family = "pod_not_healthy"
	FamilyHTTP5xx        Family = "http_5xx"
	FamilyOOMKilled      Family = "oom_killed"
	FamilyMemoryPressure Family = "memory_pressure"
	FamilyTargetDown     Family = "target_down"
	FamilyJobFailed      Family = "job_failed"
	FamilyRolloutHealth  Family = "k8s_rollout_health"
	FamilyObservability  Family = "observability_pipeline"
	FamilyMeta           Family = "meta"
	FamilyGeneric        Family = "generic"
)

// ContainerSummary is a compact per-container view used by features.
type ContainerSummary struct {
	Name          string `json:"name"`
	WaitingReason string `json:"waiting_reason,omitempty"`
	ExitCode      int    `json:"exit_code,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RestartCount  int    `json:"restart_count,omitempty"`
}

// Features is the deterministic feature record derived from evidence.
type Features struct {
	Family            Family             `json:"family"`
	PodPhase          string             `json:"pod_phase,omitempty"`
	Ready             bool               `json:"ready"`
	WaitingReason     string             `json:"waiting_reason,omitempty"`
	Containers        []ContainerSummary `json:"containers,omitempty"`
	EventReasons      []string           `json:"event_reasons,omitempty"`
	RestartRate5mMax  float64            `json:"restart_rate_5m_max,omitempty"`
	HTTP5xxRate       float64            `json:"http_5xx_rate,omitempty"`
	HTTP5xxSeries     int                `json:"http_5xx_series,omitempty"`
	LogsStatus        CollectionStatus   `json:"logs_status,omitempty"`
	ErrorPatternCount int                `json:"error_pattern_count,omitempty"`
	HistoricalMode    bool               `json:"historical_mode,omitempty"`
}

// Scores bounds impact and confidence to [0,100].
type Scores struct {
	ImpactScore     int `json:"impact_score"`
	ConfidenceScore int `json:"confidence_score"`
}

// Verdict is the headline conclusion of a run.
type Verdict struct {
	Classification string   `json:"classification"`
	OneLiner       string   `json:"one_liner"`
	Contributing   []string `json:"contributing,omitempty"`
}

// Decision is a triage decision or a family enrichment: a label plus the
// "why" and "next step" bullets that justify it.
type Decision struct {
	Label     string   `json:"label"`
	Why       []string `json:"why,omitempty"`
	NextSteps []string `json:"next_steps,omitempty"`
}

// Hypothesis is one diagnostic rule hit with its suggested follow-up tests.
type Hypothesis struct {
	Summary    string   `json:"summary"`
	Confidence string   `json:"confidence,omitempty"`
	NextTests  []string `json:"next_tests,omitempty"`
}

// ChangeSummary correlates recent change signals (rollouts, pod restarts,
// commits, cloud control-plane activity) with the alert window.
type ChangeSummary struct {
	RolloutInProgress  bool     `json:"rollout_in_progress,omitempty"`
	PodStartedRecently bool     `json:"pod_started_recently,omitempty"`
	PodAgeSeconds      float64  `json:"pod_age_seconds,omitempty"`
	RecentCommitCount  int      `json:"recent_commit_count,omitempty"`
	CloudEventCount    int      `json:"cloud_event_count,omitempty"`
	Signals            []string `json:"signals,omitempty"`
}

// CapacitySummary compares resource usage against configured limits.
// Utilizations are fractions of the limit; zero means unknown.
type CapacitySummary struct {
	CPUUtilization    float64 `json:"cpu_utilization,omitempty"`
	MemoryUtilization float64 `json:"memory_utilization,omitempty"`
	CPUThrottled      bool    `json:"cpu_throttled,omitempty"`
	Assessment        string  `json:"assessment"`
}

// NoiseVerdict classifies how actionable the alert itself is.
type NoiseVerdict struct {
	Noisy  bool   `json:"noisy"`
	Reason string `json:"reason,omitempty"`
}

// LLMInsightsStatus reports the outcome of the optional enrichment pass.
type LLMInsightsStatus string

const (
	LLMInsightsOK          LLMInsightsStatus = "ok"
	LLMInsightsUnavailable LLMInsightsStatus = "unavailable"
	LLMInsightsRateLimited LLMInsightsStatus = "rate_limited"
	LLMInsightsError       LLMInsightsStatus = "error"
)

// LLMInsights holds the natural-language summary added by the LLM pass.
// It never influences the deterministic scores or verdict.
type LLMInsights struct {
	Status     LLMInsightsStatus `json:"status"`
	Summary    string            `json:"summary,omitempty"`
	Hypothesis string            `json:"hypothesis,omitempty"`
	NextSteps  []string          `json:"next_steps,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
}

// Analysis bundles every pass output produced after evidence collection.
type Analysis struct {
	Features         *Features        `json:"features,omitempty"`
	Scores           *Scores          `json:"scores,omitempty"`
	Verdict          *Verdict         `json:"verdict,omitempty"`
	Decision         *Decision        `json:"decision,omitempty"`
	FamilyEnrichment *Decision        `json:"family_enrichment,omitempty"`
	Hypotheses       []Hypothesis     `json:"hypotheses,omitempty"`
	Noise            *NoiseVerdict    `json:"noise,omitempty"`
	Changes          *ChangeSummary   `json:"changes,omitempty"`
	Capacity         *CapacitySummary `json:"capacity,omitempty"`
	LLM              *LLMInsights     `json:"llm_insights,omitempty"`
}
