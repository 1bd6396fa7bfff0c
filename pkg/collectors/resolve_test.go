package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/sleuthops/sleuth/pkg/kube"
	"github.com/sleuthops/sleuth/pkg/models"
)

func testPod(namespace, name string, labels map[string]string, created time.Time) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:         namespace,
			Name:              name,
			Labels:            labels,
			CreationTimestamp: metav1.NewTime(created),
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func TestPodNameFromAnnotations(t *testing.T) {
	tests := []struct {
		name        string
		annotations map[string]string
		want        string
	}{
		{
			"pod colon form",
			map[string]string{"description": "pod: checkout-7f8d9c-x2v is restarting"},
			"checkout-7f8d9c-x2v",
		},
		{
			"capitalized Pod form",
			map[string]string{"summary": "Pod checkout-7f8d9c-x2v keeps crashing"},
			"checkout-7f8d9c-x2v",
		},
		{
			"backtick form",
			map[string]string{"message": "Kubernetes pod `checkout-7f8d9c-x2v` in namespace prod"},
			"checkout-7f8d9c-x2v",
		},
		{
			"short names are prose",
			map[string]string{"summary": "pod: abc is down"},
			"",
		},
		{
			"names without a hyphen are prose",
			map[string]string{"summary": "pod: checkout"},
			"",
		},
		{
			"no annotations",
			nil,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, podNameFromAnnotations(tt.annotations))
		})
	}
}

func TestPodNameFromAnnotationsDeterministic(t *testing.T) {
	// Two keys match the same pattern; the lexicographically first key wins
	// on every run.
	annotations := map[string]string{
		"z-summary": "pod: zzz-pod-name",
		"a-summary": "pod: aaa-pod-name",
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "aaa-pod-name", podNameFromAnnotations(annotations))
	}
}

func TestResolveTargetNoProvider(t *testing.T) {
	inv := &models.Investigation{
		Target: models.TargetRef{
			TargetType: models.TargetTypePod,
			Namespace:  "prod",
			Pod:        "checkout-abc",
		},
	}

	res := ResolveTarget(context.Background(), &Deps{}, inv)
	assert.Equal(t, "checkout-abc", res.PodPattern)
	assert.False(t, res.PodIsRegex)
	assert.False(t, inv.HistoricalMode)
}

func TestResolveTargetJobPod(t *testing.T) {
	now := time.Now()
	client := fake.NewSimpleClientset(
		testPod("prod", "batch-old", map[string]string{"job-name": "batch"}, now.Add(-2*time.Hour)),
		testPod("prod", "batch-new", map[string]string{"job-name": "batch"}, now.Add(-time.Minute)),
		testPod("prod", "unrelated", nil, now),
	)
	deps := &Deps{Kube: kube.NewProvider(client)}

	inv := &models.Investigation{
		Family: models.FamilyJobFailed,
		Target: models.TargetRef{Namespace: "prod", WorkloadName: "batch", WorkloadKind: "Job"},
	}

	res := ResolveTarget(context.Background(), deps, inv)
	assert.Equal(t, "batch-new", inv.Target.Pod)
	assert.Equal(t, models.TargetTypePod, inv.Target.TargetType)
	assert.Equal(t, "batch-new", res.PodPattern)
	assert.False(t, inv.HistoricalMode)
}

func TestResolveTargetPodStillExists(t *testing.T) {
	client := fake.NewSimpleClientset(testPod("prod", "checkout-abc", nil, time.Now()))
	deps := &Deps{Kube: kube.NewProvider(client)}

	inv := &models.Investigation{
		Target: models.TargetRef{
			TargetType: models.TargetTypePod,
			Namespace:  "prod",
			Pod:        "checkout-abc",
		},
	}

	res := ResolveTarget(context.Background(), deps, inv)
	assert.False(t, inv.HistoricalMode)
	assert.Equal(t, "checkout-abc", res.PodPattern)
	assert.Empty(t, inv.Errors)
}

func TestResolveTargetHistoricalMode(t *testing.T) {
	deps := &Deps{Kube: kube.NewProvider(fake.NewSimpleClientset())}
	alertStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := alertStart.Add(30 * time.Minute)

	t.Run("annotation recovers the pod name", func(t *testing.T) {
		window, err := models.AnchorWindow("1h", time.Time{}, now)
		require.NoError(t, err)
		inv := &models.Investigation{
			Window: window,
			Target: models.TargetRef{
				TargetType: models.TargetTypePod,
				Namespace:  "prod",
				Pod:        "report-1717243200-1717243260-a1b2c",
			},
		}
		inv.Alert.StartsAt = alertStart
		inv.Alert.Annotations = map[string]string{
			"description": "Pod report-1717243200-1717243260-a1b2c failed",
		}

		res := ResolveTarget(context.Background(), deps, inv)
		assert.True(t, inv.HistoricalMode)
		assert.Equal(t, "report-1717243200-1717243260-a1b2c", res.PodPattern)
		assert.False(t, res.PodIsRegex)
		// The window re-anchors onto the alert start.
		assert.Equal(t, alertStart, inv.Window.End)
		assert.Equal(t, alertStart.Add(-time.Hour), inv.Window.Start)
	})

	t.Run("regex fallback from the workload shape", func(t *testing.T) {
		window, err := models.AnchorWindow("1h", time.Time{}, now)
		require.NoError(t, err)
		inv := &models.Investigation{
			Window: window,
			Target: models.TargetRef{
				TargetType: models.TargetTypePod,
				Namespace:  "prod",
				Pod:        "checkout-7f8d9c4b5-x2vqp",
			},
		}
		inv.Alert.StartsAt = alertStart

		res := ResolveTarget(context.Background(), deps, inv)
		assert.True(t, inv.HistoricalMode)
		assert.True(t, res.PodIsRegex)
		assert.Equal(t, "^checkout-7f8d9c4b5-.*", res.PodPattern)
	})

	t.Run("window already anchored is left alone", func(t *testing.T) {
		window, err := models.AnchorWindow("1h", alertStart, now)
		require.NoError(t, err)
		inv := &models.Investigation{
			Window: window,
			Target: models.TargetRef{
				TargetType: models.TargetTypePod,
				Namespace:  "prod",
				Pod:        "checkout-7f8d9c4b5-x2vqp",
			},
		}
		inv.Alert.StartsAt = alertStart

		ResolveTarget(context.Background(), deps, inv)
		assert.Equal(t, window, inv.Window)
	})
}
