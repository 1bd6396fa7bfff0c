package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/sleuthops/sleuth/pkg/collectors"
	"github.com/sleuthops/sleuth/pkg/config"
	"github.com/sleuthops/sleuth/pkg/kube"
	"github.com/sleuthops/sleuth/pkg/logsclient"
	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/promql"
)

func allowAll() ChatPolicy {
	return ChatPolicy{
		AllowPromQL:      true,
		AllowK8sRead:     true,
		AllowK8sEvents:   true,
		AllowLogsQuery:   true,
		AllowAWSRead:     true,
		AllowGitHubRead:  true,
		AllowMemoryRead:  true,
		AllowReportRerun: true,
	}
}

func analysisJSON(t *testing.T, inv *models.Investigation) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	return raw
}

func targetAnalysis(t *testing.T, namespace, pod string) json.RawMessage {
	t.Helper()
	inv := &models.Investigation{
		Target: models.TargetRef{
			TargetType: models.TargetTypePod,
			Namespace:  namespace,
			Pod:        pod,
		},
	}
	return analysisJSON(t, inv)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(&collectors.Deps{}, nil, nil)
	result := d.Dispatch(context.Background(), Request{ToolName: "k8s.delete_pod", Policy: allowAll()})
	assert.False(t, result.OK)
	assert.Equal(t, "unknown_tool", result.Error)
}

func TestDispatchScope(t *testing.T) {
	d := NewDispatcher(&collectors.Deps{}, nil, nil)

	t.Run("namespace required", func(t *testing.T) {
		policy := allowAll()
		policy.NamespaceAllowlist = []string{"prod"}
		result := d.Dispatch(context.Background(), Request{
			ToolName: "k8s.events",
			Policy:   policy,
		})
		assert.Equal(t, "namespace_required", result.Error)
	})

	t.Run("namespace not allowed", func(t *testing.T) {
		policy := allowAll()
		policy.NamespaceAllowlist = []string{"prod"}
		result := d.Dispatch(context.Background(), Request{
			ToolName:     "k8s.events",
			Policy:       policy,
			AnalysisJSON: targetAnalysis(t, "staging", "checkout-abc"),
		})
		assert.Equal(t, "namespace_not_allowed:staging", result.Error)
	})

	t.Run("cluster not allowed", func(t *testing.T) {
		policy := allowAll()
		policy.ClusterAllowlist = []string{"prod-eu"}
		inv := &models.Investigation{
			Target: models.TargetRef{Namespace: "prod", Pod: "checkout-abc", Cluster: "dev"},
		}
		result := d.Dispatch(context.Background(), Request{
			ToolName:     "logs.tail",
			Policy:       policy,
			AnalysisJSON: analysisJSON(t, inv),
		})
		assert.Equal(t, "cluster_not_allowed:dev", result.Error)
	})

	t.Run("unscoped tools skip the allowlists", func(t *testing.T) {
		policy := allowAll()
		policy.NamespaceAllowlist = []string{"prod"}
		result := d.Dispatch(context.Background(), Request{
			ToolName: "promql.instant",
			Policy:   policy,
			Args:     Args{"query": "up"},
		})
		// Reaches the handler, which reports the missing provider.
		assert.Equal(t, "promql_error:not_configured", result.Error)
	})
}

func TestDispatchCapabilityGate(t *testing.T) {
	d := NewDispatcher(&collectors.Deps{}, nil, nil)
	result := d.Dispatch(context.Background(), Request{
		ToolName: "promql.instant",
		Policy:   ChatPolicy{}, // everything off
		Args:     Args{"query": "up"},
	})
	assert.Equal(t, "tool_not_allowed", result.Error)
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	d := NewDispatcher(nil, nil, nil) // nil deps makes every handler dereference panic
	result := d.Dispatch(context.Background(), Request{
		ToolName: "promql.instant",
		Policy:   allowAll(),
		Args:     Args{"query": "up"},
	})
	assert.False(t, result.OK)
	assert.Equal(t, "tool_internal_error", result.Error)
}

// instantAPI feeds a fixed vector to promql.instant.
type instantAPI struct {
	vector model.Vector
}

func (a instantAPI) Query(context.Context, string, time.Time, ...promv1.Option) (model.Value, promv1.Warnings, error) {
	return a.vector, nil, nil
}

func (a instantAPI) QueryRange(context.Context, string, promv1.Range, ...promv1.Option) (model.Value, promv1.Warnings, error) {
	return model.Matrix{}, nil, nil
}

func TestPromQLInstantTool(t *testing.T) {
	vector := model.Vector{
		&model.Sample{Metric: model.Metric{"pod": "a"}, Value: 1},
		&model.Sample{Metric: model.Metric{"pod": "b"}, Value: 2},
		&model.Sample{Metric: model.Metric{"pod": "c"}, Value: 3},
	}
	d := NewDispatcher(&collectors.Deps{Metrics: promql.NewProvider(instantAPI{vector: vector})}, nil, nil)

	t.Run("series cap applies", func(t *testing.T) {
		policy := allowAll()
		policy.MaxPromQLSeries = 2
		result := d.Dispatch(context.Background(), Request{
			ToolName: "promql.instant",
			Policy:   policy,
			Args:     Args{"query": "up", "at": "2025-06-01T12:00:00Z"},
		})
		require.True(t, result.OK, result.Error)
		payload := result.Result.(map[string]any)
		samples := payload["result"].([]promql.InstantSample)
		assert.Len(t, samples, 2)
		assert.Equal(t, "up", payload["query"])
	})

	t.Run("query is required", func(t *testing.T) {
		result := d.Dispatch(context.Background(), Request{
			ToolName: "promql.instant",
			Policy:   allowAll(),
		})
		assert.Equal(t, "missing_required_args:query", result.Error)
	})
}

func TestK8sPodContextTool(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "checkout-abc", Namespace: "prod"},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
	d := NewDispatcher(&collectors.Deps{Kube: kube.NewProvider(fake.NewSimpleClientset(pod))}, nil, nil)

	t.Run("target from the analysis payload", func(t *testing.T) {
		result := d.Dispatch(context.Background(), Request{
			ToolName:     "k8s.pod_context",
			Policy:       allowAll(),
			AnalysisJSON: targetAnalysis(t, "prod", "checkout-abc"),
		})
		require.True(t, result.OK, result.Error)
		payload := result.Result.(map[string]any)
		info := payload["pod_info"].(*models.PodInfo)
		assert.Equal(t, "checkout-abc", info.Name)
	})

	t.Run("explicit args override the target", func(t *testing.T) {
		result := d.Dispatch(context.Background(), Request{
			ToolName:     "k8s.pod_context",
			Policy:       allowAll(),
			Args:         Args{"pod": "ghost"},
			AnalysisJSON: targetAnalysis(t, "prod", "checkout-abc"),
		})
		assert.Equal(t, "k8s_error:not_found", result.Error)
	})

	t.Run("no target and no args", func(t *testing.T) {
		result := d.Dispatch(context.Background(), Request{
			ToolName: "k8s.pod_context",
			Policy:   allowAll(),
		})
		assert.Equal(t, "missing_required_args:namespace,pod", result.Error)
	})
}

func TestLogsTailRedactionFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"_time":"2025-06-01T11:59:00Z","_msg":"listening on :8080"}`)
	}))
	defer server.Close()

	logs := logsclient.NewClient(&config.Settings{
		LogsURL:     server.URL,
		LogsBackend: "victorialogs",
		LogsTimeout: 5 * time.Second,
	})
	d := NewDispatcher(&collectors.Deps{Logs: logs}, nil, nil) // no masker

	policy := allowAll()
	policy.RedactSecrets = true
	result := d.Dispatch(context.Background(), Request{
		ToolName:     "logs.tail",
		Policy:       policy,
		AnalysisJSON: targetAnalysis(t, "prod", "checkout-abc"),
	})
	assert.Equal(t, "redaction_unavailable", result.Error)

	policy.RedactSecrets = false
	result = d.Dispatch(context.Background(), Request{
		ToolName:     "logs.tail",
		Policy:       policy,
		AnalysisJSON: targetAnalysis(t, "prod", "checkout-abc"),
	})
	require.True(t, result.OK, result.Error)
	payload := result.Result.(map[string]any)
	entries := payload["entries"].([]models.LogEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, "listening on :8080", entries[0].Message)
}

// stubRunner records the alert handed to rerun.investigation.
type stubRunner struct {
	lastAlert  models.AlertEvent
	lastWindow string
}

func (r *stubRunner) Run(_ context.Context, alert models.AlertEvent, windowExpr string) *models.Investigation {
	r.lastAlert = alert
	r.lastWindow = windowExpr
	return &models.Investigation{
		ID:     "rerun-1",
		Window: models.TimeWindow{Expression: windowExpr},
	}
}

func TestRerunInvestigationTool(t *testing.T) {
	baseInv := &models.Investigation{
		Target: models.TargetRef{Namespace: "prod", Pod: "checkout-abc"},
	}
	baseInv.Alert.Labels = map[string]string{"alertname": "KubePodCrashLooping"}
	baseInv.Alert.StartsAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := analysisJSON(t, baseInv)

	t.Run("unavailable without a runner", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, nil, nil)
		result := d.Dispatch(context.Background(), Request{
			ToolName:     "rerun.investigation",
			Policy:       allowAll(),
			Args:         Args{"time_window": "30m"},
			AnalysisJSON: payload,
		})
		assert.Equal(t, "rerun_unavailable", result.Error)
	})

	t.Run("time window is required and validated", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, &stubRunner{}, nil)
		result := d.Dispatch(context.Background(), Request{
			ToolName: "rerun.investigation", Policy: allowAll(), AnalysisJSON: payload,
		})
		assert.Equal(t, "missing_required_args:time_window", result.Error)

		result = d.Dispatch(context.Background(), Request{
			ToolName: "rerun.investigation", Policy: allowAll(),
			Args: Args{"time_window": "soon"}, AnalysisJSON: payload,
		})
		assert.Equal(t, "invalid_time_window", result.Error)
	})

	t.Run("window cap", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, &stubRunner{}, nil)
		policy := allowAll()
		policy.MaxTimeWindowSeconds = 60
		result := d.Dispatch(context.Background(), Request{
			ToolName: "rerun.investigation", Policy: policy,
			Args: Args{"time_window": "5m"}, AnalysisJSON: payload,
		})
		assert.Equal(t, "time_window_too_large", result.Error)
	})

	t.Run("reruns and re-anchors on now", func(t *testing.T) {
		runner := &stubRunner{}
		d := NewDispatcher(&collectors.Deps{}, runner, nil)
		result := d.Dispatch(context.Background(), Request{
			ToolName: "rerun.investigation", Policy: allowAll(),
			Args:         Args{"time_window": "30m", "reference_time": "now"},
			AnalysisJSON: payload,
		})
		require.True(t, result.OK, result.Error)
		assert.Equal(t, "30m", runner.lastWindow)
		// reference_time=now drops the original onset anchor.
		assert.True(t, runner.lastAlert.StartsAt.IsZero())
		assert.Equal(t, "KubePodCrashLooping", runner.lastAlert.Labels["alertname"])

		payload := result.Result.(map[string]any)
		assert.Equal(t, "rerun-1", payload["investigation_id"])
		assert.NotEmpty(t, result.UpdatedAnalysis)
	})
}

func TestActionTools(t *testing.T) {
	t.Run("proposals disabled by default", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, nil, nil)
		result := d.Dispatch(context.Background(), Request{
			ToolName: "actions.propose", Policy: allowAll(), CaseID: "case-1",
			Args: Args{"type": "restart_deployment"},
		})
		assert.Equal(t, "tool_not_allowed", result.Error)
	})

	t.Run("type allowlist", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, nil, nil)
		result := d.Dispatch(context.Background(), Request{
			ToolName: "actions.propose", Policy: allowAll(), CaseID: "case-1",
			ActionPolicy: ActionPolicy{Enabled: true, ActionTypeAllowlist: []string{"restart_deployment"}},
			Args:         Args{"type": "rollback"},
		})
		assert.Equal(t, "action_type_not_allowed:rollback", result.Error)
	})

	t.Run("propose then hit the per-case cap", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, nil, nil)
		actionPolicy := ActionPolicy{Enabled: true, MaxActionsPerCase: 1}

		result := d.Dispatch(context.Background(), Request{
			ToolName: "actions.propose", Policy: allowAll(), CaseID: "case-1",
			ActionPolicy: actionPolicy,
			Args:         Args{"type": "restart_deployment", "target": "prod/checkout"},
		})
		require.True(t, result.OK, result.Error)

		result = d.Dispatch(context.Background(), Request{
			ToolName: "actions.propose", Policy: allowAll(), CaseID: "case-1",
			ActionPolicy: actionPolicy,
			Args:         Args{"type": "restart_deployment"},
		})
		assert.Equal(t, "action_limit_reached", result.Error)

		list := d.Dispatch(context.Background(), Request{
			ToolName: "actions.list", Policy: allowAll(), CaseID: "case-1",
		})
		require.True(t, list.OK)
		actions := list.Result.(map[string]any)["actions"].([]Action)
		assert.Len(t, actions, 1)
	})

	t.Run("list needs a case id", func(t *testing.T) {
		d := NewDispatcher(&collectors.Deps{}, nil, nil)
		result := d.Dispatch(context.Background(), Request{ToolName: "actions.list", Policy: allowAll()})
		assert.Equal(t, "missing_required_args:case_id", result.Error)
	})
}

func TestMemoryTools(t *testing.T) {
	d := NewDispatcher(&collectors.Deps{}, nil, nil)
	d.Memory().RememberCase(CaseSummary{CaseID: "old-1", Family: "crashloop", Verdict: "suspected_oom_crash"})
	d.Memory().AddSkill(Skill{Name: "raise-memory-limit", AppliesTo: []string{"crashloop"}})

	inv := &models.Investigation{Family: models.FamilyCrashloop}
	payload := analysisJSON(t, inv)

	cases := d.Dispatch(context.Background(), Request{
		ToolName: "memory.similar_cases", Policy: allowAll(), AnalysisJSON: payload,
	})
	require.True(t, cases.OK, cases.Error)
	found := cases.Result.(map[string]any)["cases"].([]CaseSummary)
	require.Len(t, found, 1)
	assert.Equal(t, "old-1", found[0].CaseID)

	skills := d.Dispatch(context.Background(), Request{
		ToolName: "memory.skills", Policy: allowAll(), AnalysisJSON: payload,
	})
	require.True(t, skills.OK)
	assert.Len(t, skills.Result.(map[string]any)["skills"].([]Skill), 1)
}
