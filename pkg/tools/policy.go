// Package tools is the chat-facing tool runtime: a dispatcher that checks
// policy, fills argument defaults from the investigation's analysis, calls
// the provider layer, and returns compact results with stable error codes.
package tools

// ChatPolicy gates what a chat session may read and how much of it.
// Empty allowlists mean "no restriction"; capability flags default to off.
type ChatPolicy struct {
	AllowPromQL      bool `json:"allow_promql"`
	AllowK8sRead     bool `json:"allow_k8s_read"`
	AllowK8sEvents   bool `json:"allow_k8s_events"`
	AllowLogsQuery   bool `json:"allow_logs_query"`
	AllowAWSRead     bool `json:"allow_aws_read"`
	AllowGitHubRead  bool `json:"allow_github_read"`
	AllowMemoryRead  bool `json:"allow_memory_read"`
	AllowReportRerun bool `json:"allow_report_rerun"`
	AllowArgoCDRead  bool `json:"allow_argocd_read"`
	RedactSecrets    bool `json:"redact_secrets"`

	NamespaceAllowlist  []string `json:"namespace_allowlist,omitempty"`
	ClusterAllowlist    []string `json:"cluster_allowlist,omitempty"`
	AWSRegionAllowlist  []string `json:"aws_region_allowlist,omitempty"`
	GitHubRepoAllowlist []string `json:"github_repo_allowlist,omitempty"`

	MaxLogLines          int `json:"max_log_lines,omitempty"`
	MaxPromQLSeries      int `json:"max_promql_series,omitempty"`
	MaxTimeWindowSeconds int `json:"max_time_window_seconds,omitempty"`
	MaxSteps             int `json:"max_steps,omitempty"`
	MaxToolCalls         int `json:"max_tool_calls,omitempty"`
}

// ActionPolicy gates mutating action proposals.
type ActionPolicy struct {
	Enabled             bool     `json:"enabled"`
	NamespaceAllowlist  []string `json:"namespace_allowlist,omitempty"`
	ClusterAllowlist    []string `json:"cluster_allowlist,omitempty"`
	ActionTypeAllowlist []string `json:"action_type_allowlist,omitempty"`
	MaxActionsPerCase   int      `json:"max_actions_per_case,omitempty"`
}

// allowed reports whether value passes an allowlist; an empty list allows
// everything.
func allowed(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
