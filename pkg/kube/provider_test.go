package kube

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
)

func int32Ptr(i int32) *int32 { return &i }

func crashingPod(namespace, name string) *corev1.Pod {
	started := metav1.NewTime(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": "checkout"},
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "ReplicaSet", Name: "checkout-7f8d9c"},
			},
		},
		Spec: corev1.PodSpec{
			NodeName:   "node-1",
			Containers: []corev1.Container{{Name: "app", Image: "registry/checkout:v2"}},
		},
		Status: corev1.PodStatus{
			Phase:     corev1.PodRunning,
			StartTime: &started,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionFalse, Reason: "ContainersNotReady"},
			},
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name:         "app",
					Image:        "registry/checkout:v2",
					Ready:        false,
					RestartCount: 7,
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
					},
					LastTerminationState: corev1.ContainerState{
						Terminated: &corev1.ContainerStateTerminated{
							ExitCode: 137,
							Reason:   "OOMKilled",
						},
					},
				},
			},
		},
	}
}

func TestGetPodInfo(t *testing.T) {
	client := fake.NewSimpleClientset(crashingPod("prod", "checkout-7f8d9c-x2v"))
	p := NewProvider(client)

	info, conditions, code := p.GetPodInfo(context.Background(), "prod", "checkout-7f8d9c-x2v")
	require.Empty(t, code)

	assert.Equal(t, "checkout-7f8d9c-x2v", info.Name)
	assert.Equal(t, "Running", info.Phase)
	assert.False(t, info.Ready)
	assert.Equal(t, "node-1", info.NodeName)
	require.Len(t, info.Containers, 1)
	assert.Equal(t, 7, info.Containers[0].RestartCount)
	assert.Equal(t, "CrashLoopBackOff", info.Containers[0].WaitingReason)
	require.NotNil(t, info.Containers[0].LastTerminated)
	assert.Equal(t, 137, info.Containers[0].LastTerminated.ExitCode)
	assert.Equal(t, "OOMKilled", info.Containers[0].LastTerminated.Reason)
	require.Len(t, conditions, 1)
	assert.Equal(t, "Ready", conditions[0].Type)
}

func TestGetPodInfoNotFound(t *testing.T) {
	p := NewProvider(fake.NewSimpleClientset())

	_, _, code := p.GetPodInfo(context.Background(), "prod", "ghost")
	assert.Equal(t, "k8s_error:not_found", code)
	assert.True(t, IsNotFound(code))
}

func TestListPodsByLabelNewestFirst(t *testing.T) {
	old := crashingPod("prod", "batch-old")
	old.Labels = map[string]string{"job-name": "batch"}
	old.CreationTimestamp = metav1.NewTime(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	recent := crashingPod("prod", "batch-new")
	recent.Labels = map[string]string{"job-name": "batch"}
	recent.CreationTimestamp = metav1.NewTime(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	other := crashingPod("prod", "unrelated")

	p := NewProvider(fake.NewSimpleClientset(old, recent, other))
	pods, code := p.ListPods(context.Background(), "prod", "job-name=batch")
	require.Empty(t, code)

	require.Len(t, pods, 2)
	assert.Equal(t, "batch-new", pods[0].Name)
	assert.Equal(t, "batch-old", pods[1].Name)
}

func TestListEventsCapAndOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var objs []runtime.Object
	for i := 0; i < 5; i++ {
		objs = append(objs, &corev1.Event{
			ObjectMeta:     metav1.ObjectMeta{Name: strings.Repeat("e", i+1), Namespace: "prod"},
			Reason:         "BackOff",
			Message:        "restarting failed container",
			Type:           "Warning",
			Count:          int32(i + 1),
			InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "checkout-abc"},
			LastTimestamp:  metav1.NewTime(base.Add(time.Duration(i) * time.Minute)),
		})
	}
	client := fake.NewSimpleClientset(objs...)
	p := NewProvider(client)

	events, code := p.ListEvents(context.Background(), "prod", "Pod", "checkout-abc", 3)
	require.Empty(t, code)
	require.Len(t, events, 3)
	// Newest-last, oldest entries dropped by the cap.
	assert.True(t, events[0].LastSeen.Before(events[2].LastSeen))
	assert.Equal(t, base.Add(4*time.Minute), events[2].LastSeen)
}

func TestGetOwnerChainPodToDeployment(t *testing.T) {
	pod := crashingPod("prod", "checkout-7f8d9c-x2v")
	rs := &appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "checkout-7f8d9c",
			Namespace:       "prod",
			Labels:          map[string]string{"app": "checkout"},
			OwnerReferences: []metav1.OwnerReference{{Kind: "Deployment", Name: "checkout"}},
		},
	}
	deploy := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "checkout",
			Namespace: "prod",
			Labels:    map[string]string{"team": "payments"},
		},
	}

	p := NewProvider(fake.NewSimpleClientset(pod, rs, deploy))
	chain, code := p.GetOwnerChain(context.Background(), "prod", "checkout-7f8d9c-x2v")
	require.Empty(t, code)

	require.Len(t, chain, 2)
	assert.Equal(t, "ReplicaSet", chain[0].Kind)
	assert.Equal(t, "Deployment", chain[1].Kind)
	assert.Equal(t, "checkout", chain[1].Name)
	assert.Equal(t, "payments", chain[1].Labels["team"])
}

func TestGetOwnerChainJobToCronJob(t *testing.T) {
	pod := crashingPod("prod", "report-29012345-abc")
	pod.OwnerReferences = []metav1.OwnerReference{{Kind: "Job", Name: "report-29012345"}}
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "report-29012345",
			Namespace:       "prod",
			OwnerReferences: []metav1.OwnerReference{{Kind: "CronJob", Name: "report"}},
		},
	}
	cron := &batchv1.CronJob{
		ObjectMeta: metav1.ObjectMeta{Name: "report", Namespace: "prod"},
	}

	p := NewProvider(fake.NewSimpleClientset(pod, job, cron))
	chain, code := p.GetOwnerChain(context.Background(), "prod", "report-29012345-abc")
	require.Empty(t, code)

	require.Len(t, chain, 2)
	assert.Equal(t, "Job", chain[0].Kind)
	assert.Equal(t, "CronJob", chain[1].Kind)
}

func TestGetOwnerChainBoundsCyclicRefs(t *testing.T) {
	pod := crashingPod("prod", "loop-abc")
	pod.OwnerReferences = []metav1.OwnerReference{{Kind: "ReplicaSet", Name: "loop"}}
	// A ReplicaSet claiming ownership of itself must not walk forever.
	rs := &appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "loop",
			Namespace:       "prod",
			OwnerReferences: []metav1.OwnerReference{{Kind: "ReplicaSet", Name: "loop"}},
		},
	}

	p := NewProvider(fake.NewSimpleClientset(pod, rs))
	chain, code := p.GetOwnerChain(context.Background(), "prod", "loop-abc")
	require.Empty(t, code)
	assert.Len(t, chain, maxOwnerChainDepth)
}

func TestGetRolloutStatus(t *testing.T) {
	deploy := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "checkout", Namespace: "prod"},
		Spec:       appsv1.DeploymentSpec{Replicas: int32Ptr(3)},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas:       1,
			UpdatedReplicas:     3,
			UnavailableReplicas: 2,
		},
	}
	p := NewProvider(fake.NewSimpleClientset(deploy))

	rollout, code := p.GetRolloutStatus(context.Background(), "prod", "Deployment", "checkout")
	require.Empty(t, code)
	assert.Equal(t, int32(3), rollout.Replicas)
	assert.Equal(t, int32(1), rollout.ReadyReplicas)
	assert.False(t, rollout.Healthy)

	t.Run("unsupported kind", func(t *testing.T) {
		_, code := p.GetRolloutStatus(context.Background(), "prod", "Ingress", "web")
		assert.Equal(t, "k8s_error:unsupported_kind:Ingress", code)
	})
}

func TestGetWorkloadAnnotations(t *testing.T) {
	deploy := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "checkout",
			Namespace:   "prod",
			Annotations: map[string]string{"github.com/repo": "myorg/checkout"},
		},
	}
	p := NewProvider(fake.NewSimpleClientset(deploy))

	annotations, code := p.GetWorkloadAnnotations(context.Background(), "prod", "Deployment", "checkout")
	require.Empty(t, code)
	assert.Equal(t, "myorg/checkout", annotations["github.com/repo"])
}

func TestParseTimestampedLogs(t *testing.T) {
	stream := strings.NewReader(strings.Join([]string{
		"2025-06-01T12:00:00.123456789Z panic: runtime error",
		"no timestamp on this line",
		"",
		"2025-06-01T12:00:01Z goroutine 1 [running]:",
	}, "\n"))

	entries := parseTimestampedLogs(stream)
	require.Len(t, entries, 3)
	assert.Equal(t, "panic: runtime error", entries[0].Message)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, "no timestamp on this line", entries[1].Message)
	assert.True(t, entries[1].Timestamp.IsZero())
	assert.Equal(t, "goroutine 1 [running]:", entries[2].Message)
}
