package models

import "time"

// CollectionStatus reports the outcome of filling one evidence slot.
type CollectionStatus string

const (
	StatusOK          CollectionStatus = "ok"
	StatusEmpty       CollectionStatus = "empty"
	StatusUnavailable CollectionStatus = "unavailable"
)

// PromoteStatus merges a new collection status into an existing one.
// A slot that reached "ok" is never downgraded; anything beats "".
func PromoteStatus(current, next CollectionStatus) CollectionStatus {
	if current == StatusOK {
		return current
	}
	if next == "" {
		return current
	}
	return next
}

// LogEntry is one log line with its backend labels.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// LogsBackend identifies the log store dialect that served a query.
type LogsBackend string

const (
	BackendLoki         LogsBackend = "loki"
	BackendVictoriaLogs LogsBackend = "victorialogs"
	BackendNone         LogsBackend = ""
)

// LogsEvidence is the logs slot of an investigation.
type LogsEvidence struct {
	Entries       []LogEntry       `json:"entries,omitempty"`
	Status        CollectionStatus `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	Backend       LogsBackend      `json:"backend,omitempty"`
	QueryUsed     string           `json:"query_used,omitempty"`
	ErrorPatterns []string         `json:"error_patterns,omitempty"`
}

// Sample is one metric observation.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries is one labelled series of samples.
type TimeSeries struct {
	Labels  map[string]string `json:"labels,omitempty"`
	Samples []Sample          `json:"samples,omitempty"`
}

// MetricSlot is one named per-signal metrics sub-record.
type MetricSlot struct {
	Series []TimeSeries     `json:"series,omitempty"`
	Status CollectionStatus `json:"status,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// Set fills the slot, honoring status monotonicity.
func (s *MetricSlot) Set(series []TimeSeries, status CollectionStatus, reason string) {
	if s.Status == StatusOK && status != StatusOK {
		return
	}
	s.Series = series
	s.Status = PromoteStatus(s.Status, status)
	s.Reason = reason
}

// MetricsEvidence groups the per-signal metric slots.
type MetricsEvidence struct {
	CPUThrottling MetricSlot `json:"cpu_throttling,omitzero"`
	CPUUsage      MetricSlot `json:"cpu_usage,omitzero"`
	CPULimits     MetricSlot `json:"cpu_limits,omitzero"`
	MemoryUsage   MetricSlot `json:"memory_usage,omitzero"`
	MemoryLimits  MetricSlot `json:"memory_limits,omitzero"`
	Restarts      MetricSlot `json:"restarts,omitzero"`
	PodPhase      MetricSlot `json:"pod_phase,omitzero"`
	HTTP5xx       MetricSlot `json:"http_5xx,omitzero"`
}

// TerminationInfo summarizes a container's last terminated state.
type TerminationInfo struct {
	ExitCode   int       `json:"exit_code"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// ContainerInfo is the per-container status extracted from a pod.
type ContainerInfo struct {
	Name           string           `json:"name"`
	Image          string           `json:"image,omitempty"`
	Ready          bool             `json:"ready"`
	RestartCount   int              `json:"restart_count"`
	WaitingReason  string           `json:"waiting_reason,omitempty"`
	LastTerminated *TerminationInfo `json:"last_terminated,omitempty"`
}

// PodInfo is the pod-level state snapshot.
type PodInfo struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	NodeName    string            `json:"node_name,omitempty"`
	Phase       string            `json:"phase,omitempty"`
	Ready       bool              `json:"ready"`
	StartTime   time.Time         `json:"start_time,omitzero"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Containers  []ContainerInfo   `json:"containers,omitempty"`
	Images      []string          `json:"images,omitempty"`
}

// PodCondition mirrors one entry of pod status conditions.
type PodCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// K8sEvent is one Kubernetes event relevant to the target.
type K8sEvent struct {
	Reason    string    `json:"reason"`
	Message   string    `json:"message,omitempty"`
	Type      string    `json:"type,omitempty"`
	Count     int       `json:"count,omitempty"`
	Object    string    `json:"object,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitzero"`
	FirstSeen time.Time `json:"first_seen,omitzero"`
}

// OwnerRef is one link of the ownership chain from pod up to workload.
type OwnerRef struct {
	Kind   string            `json:"kind"`
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
}

// RolloutStatus summarizes the owning workload's rollout health.
type RolloutStatus struct {
	Kind                string `json:"kind"`
	Name                string `json:"name"`
	Replicas            int32  `json:"replicas"`
	ReadyReplicas       int32  `json:"ready_replicas"`
	UpdatedReplicas     int32  `json:"updated_replicas"`
	UnavailableReplicas int32  `json:"unavailable_replicas,omitempty"`
	Healthy             bool   `json:"healthy"`
	Message             string `json:"message,omitempty"`
}

// ProbeFailureType classifies probe failures seen in pod events.
type ProbeFailureType string

const (
	ProbeFailureLiveness  ProbeFailureType = "liveness"
	ProbeFailureReadiness ProbeFailureType = "readiness"
	ProbeFailureNone      ProbeFailureType = "none"
)

// K8sEvidence is the Kubernetes slot of an investigation.
type K8sEvidence struct {
	PodInfo       *PodInfo       `json:"pod_info,omitempty"`
	PodConditions []PodCondition `json:"pod_conditions,omitempty"`
	PodEvents     []K8sEvent     `json:"pod_events,omitempty"`
	OwnerChain    []OwnerRef     `json:"owner_chain,omitempty"`
	RolloutStatus *RolloutStatus `json:"rollout_status,omitempty"`

	// Crashloop metadata, filled by the crashloop collector.
	PreviousContainerLogs []LogEntry       `json:"previous_container_logs,omitempty"`
	ProbeFailureType      ProbeFailureType `json:"probe_failure_type,omitempty"`
	CrashDurationSeconds  float64          `json:"crash_duration_seconds,omitempty"`
}

// AWSMetadata carries the resource identifiers discovered for the target.
type AWSMetadata struct {
	Region      string   `json:"region,omitempty"`
	InstanceIDs []string `json:"instance_ids,omitempty"`
	VolumeIDs   []string `json:"volume_ids,omitempty"`
	ECRRepos    []string `json:"ecr_repos,omitempty"`
	NodeNames   []string `json:"node_names,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// AWSResource is a flattened summary of one cloud resource's health.
type AWSResource struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	State   string            `json:"state,omitempty"`
	Healthy bool              `json:"healthy"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// CloudTrailEvent is one management event in the precursor window.
type CloudTrailEvent struct {
	EventName string    `json:"event_name"`
	EventTime time.Time `json:"event_time"`
	Username  string    `json:"username,omitempty"`
	Source    string    `json:"source,omitempty"`
	Category  string    `json:"category,omitempty"`
	Resources []string  `json:"resources,omitempty"`
}

// CloudTrailMetadata describes how the CloudTrail lookup ran.
type CloudTrailMetadata struct {
	LookbackMinutes int              `json:"lookback_minutes"`
	MaxEvents       int              `json:"max_events"`
	Region          string           `json:"region,omitempty"`
	Status          CollectionStatus `json:"status,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}

// AWSEvidence is the cloud slot of an investigation.
type AWSEvidence struct {
	EC2Instances []AWSResource `json:"ec2_instances,omitempty"`
	EBSVolumes   []AWSResource `json:"ebs_volumes,omitempty"`
	ELBHealth    []AWSResource `json:"elb_health,omitempty"`
	RDSInstances []AWSResource `json:"rds_instances,omitempty"`
	ECRImages    []AWSResource `json:"ecr_images,omitempty"`
	Networking   []AWSResource `json:"networking,omitempty"`
	Metadata     *AWSMetadata  `json:"metadata,omitempty"`

	CloudTrailEvents   []CloudTrailEvent            `json:"cloudtrail_events,omitempty"`
	CloudTrailGrouped  map[string][]CloudTrailEvent `json:"cloudtrail_grouped,omitempty"`
	CloudTrailMetadata *CloudTrailMetadata          `json:"cloudtrail_metadata,omitempty"`
}

// Commit is one recent commit on the discovered repository.
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	URL       string    `json:"url,omitempty"`
}

// WorkflowRun is one CI run on the discovered repository.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	HeadSHA    string    `json:"head_sha,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	URL        string    `json:"url,omitempty"`
}

// RepoFile is a documentation file fetched from the repository.
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// GitHubEvidence is the source-control slot of an investigation.
type GitHubEvidence struct {
	Repo               string        `json:"repo,omitempty"`
	DiscoveryMethod    string        `json:"discovery_method,omitempty"`
	IsThirdParty       bool          `json:"is_third_party,omitempty"`
	RecentCommits      []Commit      `json:"recent_commits,omitempty"`
	WorkflowRuns       []WorkflowRun `json:"workflow_runs,omitempty"`
	FailedWorkflowLogs []string      `json:"failed_workflow_logs,omitempty"`
	Readme             string        `json:"readme,omitempty"`
	Docs               []RepoFile    `json:"docs,omitempty"`
}

// Evidence is the record of independent, optional evidence slots.
// Each slot is written by exactly one collector within a run.
type Evidence struct {
	Logs    *LogsEvidence    `json:"logs,omitempty"`
	K8s     *K8sEvidence     `json:"k8s,omitempty"`
	Metrics *MetricsEvidence `json:"metrics,omitempty"`
	AWS     *AWSEvidence     `json:"aws,omitempty"`
	GitHub  *GitHubEvidence  `json:"github,omitempty"`
}

// EnsureK8s returns the K8s slot, allocating it on first use.
func (e *Evidence) EnsureK8s() *K8sEvidence {
	if e.K8s == nil {
		e.K8s = &K8sEvidence{}
	}
	return e.K8s
}

// EnsureMetrics returns the metrics slot, allocating it on first use.
func (e *Evidence) EnsureMetrics() *MetricsEvidence {
	if e.Metrics == nil {
		e.Metrics = &MetricsEvidence{}
	}
	return e.Metrics
}

// SetLogs fills the logs slot, honoring status monotonicity.
func (e *Evidence) SetLogs(logs *LogsEvidence) {
	if logs == nil {
		return
	}
	if e.Logs != nil && e.Logs.Status == StatusOK && logs.Status != StatusOK {
		return
	}
	e.Logs = logs
}
