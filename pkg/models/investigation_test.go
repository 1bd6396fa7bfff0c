package models

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddError(t *testing.T) {
	inv := &Investigation{}
	inv.AddError("k8s", "k8s_error:forbidden")
	inv.AddError("logs", "timeout")

	assert.Equal(t, []string{"k8s:k8s_error:forbidden", "logs:timeout"}, inv.Errors)
}

func TestAddErrorConcurrent(t *testing.T) {
	inv := &Investigation{}
	inv.EnableConcurrentErrors()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv.AddError("metrics", "no_series")
		}()
	}
	wg.Wait()

	assert.Len(t, inv.Errors, 20)
}

func sampleInvestigation() *Investigation {
	return &Investigation{
		ID: "inv-1",
		Evidence: Evidence{
			Logs: &LogsEvidence{
				Status:        StatusOK,
				Backend:       BackendLoki,
				QueryUsed:     `{namespace="prod"}`,
				Entries:       []LogEntry{{Message: "connection refused", Timestamp: time.Now()}},
				ErrorPatterns: []string{"connection refused"},
			},
			Metrics: &MetricsEvidence{
				Restarts: MetricSlot{
					Status: StatusOK,
					Series: []TimeSeries{{Samples: []Sample{{Value: 3}}}},
				},
			},
			K8s: &K8sEvidence{
				PodInfo:               &PodInfo{Name: "checkout-abc", Namespace: "prod"},
				PreviousContainerLogs: []LogEntry{{Message: "panic: nil"}},
			},
			AWS: &AWSEvidence{
				CloudTrailEvents:   []CloudTrailEvent{{EventName: "TerminateInstances"}},
				CloudTrailMetadata: &CloudTrailMetadata{LookbackMinutes: 30},
			},
			GitHub: &GitHubEvidence{
				Repo:          "myorg/checkout",
				RecentCommits: []Commit{{SHA: "abc123"}},
				Readme:        "# checkout",
			},
		},
	}
}

func TestMarshalProjectionFull(t *testing.T) {
	data, err := sampleInvestigation().MarshalProjection(ProjectionFull)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	evidence := decoded["evidence"].(map[string]any)
	logs := evidence["logs"].(map[string]any)
	assert.NotNil(t, logs["entries"])
}

func TestMarshalProjectionRoundTrip(t *testing.T) {
	inv := sampleInvestigation()
	inv.Family = FamilyCrashloop
	inv.Errors = []string{"logs:timeout"}

	data, err := inv.MarshalProjection(ProjectionFull)
	require.NoError(t, err)

	var decoded Investigation
	require.NoError(t, json.Unmarshal(data, &decoded))
	again, err := decoded.MarshalProjection(ProjectionFull)
	require.NoError(t, err)

	assert.JSONEq(t, string(data), string(again))
}

func TestMarshalProjectionAnalysisDropsBulkArrays(t *testing.T) {
	inv := sampleInvestigation()
	data, err := inv.MarshalProjection(ProjectionAnalysis)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	evidence := decoded["evidence"].(map[string]any)

	logs := evidence["logs"].(map[string]any)
	assert.Nil(t, logs["entries"])
	assert.Equal(t, "ok", logs["status"])
	assert.Equal(t, []any{"connection refused"}, logs["error_patterns"])

	k8s := evidence["k8s"].(map[string]any)
	assert.Nil(t, k8s["previous_container_logs"])
	assert.NotNil(t, k8s["pod_info"])

	aws := evidence["aws"].(map[string]any)
	assert.Nil(t, aws["cloudtrail_events"])
	assert.NotNil(t, aws["cloudtrail_metadata"])

	github := evidence["github"].(map[string]any)
	assert.Nil(t, github["recent_commits"])
	assert.Nil(t, github["readme"])
	assert.Equal(t, "myorg/checkout", github["repo"])

	// The original record is untouched.
	assert.NotEmpty(t, inv.Evidence.Logs.Entries)
	assert.NotEmpty(t, inv.Evidence.GitHub.RecentCommits)
}

func TestPromoteStatus(t *testing.T) {
	assert.Equal(t, StatusOK, PromoteStatus(StatusOK, StatusUnavailable))
	assert.Equal(t, StatusEmpty, PromoteStatus(StatusEmpty, ""))
	assert.Equal(t, StatusOK, PromoteStatus(StatusEmpty, StatusOK))
	assert.Equal(t, StatusUnavailable, PromoteStatus("", StatusUnavailable))
}

func TestMetricSlotSetMonotonic(t *testing.T) {
	slot := MetricSlot{}
	slot.Set([]TimeSeries{{}}, StatusOK, "")
	slot.Set(nil, StatusUnavailable, "timeout")

	assert.Equal(t, StatusOK, slot.Status)
	assert.NotNil(t, slot.Series)
}
