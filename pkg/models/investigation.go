package models

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Investigation is the single value produced by one pipeline run. It is
// mutated only inside the pipeline; downstream readers treat it as immutable.
type Investigation struct {
	ID             string     `json:"id"`
	Alert          AlertEvent `json:"alert"`
	Window         TimeWindow `json:"window"`
	Target         TargetRef  `json:"target"`
	Family         Family     `json:"family"`
	HistoricalMode bool       `json:"historical_mode,omitempty"`
	Evidence       Evidence   `json:"evidence"`
	Analysis       Analysis   `json:"analysis"`
	Errors         []string   `json:"errors,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// errMu, when set, serializes AddError across collector goroutines.
	// The pipeline enables it before fan-out; single-threaded callers
	// (tests, tools) can skip it.
	errMu *sync.Mutex
}

// EnableConcurrentErrors makes AddError safe to call from multiple
// goroutines.
func (inv *Investigation) EnableConcurrentErrors() {
	inv.errMu = &sync.Mutex{}
}

// AddError appends a compact collector error string ("subsystem:code").
// Errors never propagate past the pipeline boundary; this list is the
// only place failures surface.
func (inv *Investigation) AddError(subsystem, code string) {
	if inv.errMu != nil {
		inv.errMu.Lock()
		defer inv.errMu.Unlock()
	}
	inv.Errors = append(inv.Errors, fmt.Sprintf("%s:%s", subsystem, code))
}

// ProjectionMode selects how much of the record a serialization carries.
type ProjectionMode string

const (
	// ProjectionFull keeps everything, including raw evidence arrays.
	ProjectionFull ProjectionMode = "full"
	// ProjectionAnalysis drops raw evidence arrays (log entries, metric
	// samples, CloudTrail events, commits) but keeps statuses and metadata.
	ProjectionAnalysis ProjectionMode = "analysis"
)

// MarshalProjection serializes the investigation in the requested mode.
func (inv *Investigation) MarshalProjection(mode ProjectionMode) ([]byte, error) {
	if mode != ProjectionAnalysis {
		return json.Marshal(inv)
	}
	trimmed := *inv
	trimmed.Evidence = trimEvidence(inv.Evidence)
	return json.Marshal(&trimmed)
}

// trimEvidence returns a copy of the evidence with bulk arrays removed.
func trimEvidence(e Evidence) Evidence {
	out := Evidence{}
	if e.Logs != nil {
		logs := *e.Logs
		logs.Entries = nil
		out.Logs = &logs
	}
	if e.K8s != nil {
		k8s := *e.K8s
		k8s.PreviousContainerLogs = nil
		out.K8s = &k8s
	}
	if e.Metrics != nil {
		m := *e.Metrics
		for _, slot := range []*MetricSlot{
			&m.CPUThrottling, &m.CPUUsage, &m.CPULimits,
			&m.MemoryUsage, &m.MemoryLimits, &m.Restarts,
			&m.PodPhase, &m.HTTP5xx,
		} {
			slot.Series = nil
		}
		out.Metrics = &m
	}
	if e.AWS != nil {
		aws := *e.AWS
		aws.CloudTrailEvents = nil
		aws.CloudTrailGrouped = nil
		out.AWS = &aws
	}
	if e.GitHub != nil {
		gh := *e.GitHub
		gh.RecentCommits = nil
		gh.WorkflowRuns = nil
		gh.FailedWorkflowLogs = nil
		gh.Readme = ""
		gh.Docs = nil
		out.GitHub = &gh
	}
	return out
}
