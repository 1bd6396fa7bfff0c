package collectors

import (
	"context"
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
)

const (
	podEventLimit        = 20
	previousLogTailLines = 50
)

// CollectK8s fills the K8s evidence slot: pod snapshot, conditions, events,
// owner chain, rollout status, and the crashloop augmentation when the
// family calls for it. Non-pod targets with a known workload still get
// events and rollout status.
func CollectK8s(ctx context.Context, deps *Deps, inv *models.Investigation) {
	if deps.Kube == nil {
		return
	}
	target := inv.Target
	k8s := inv.Evidence.EnsureK8s()

	if !target.IsPodScoped() || inv.HistoricalMode {
		collectWorkloadView(ctx, deps, inv, k8s)
		return
	}

	pod, conditions, code := deps.Kube.GetPodInfo(ctx, target.Namespace, target.Pod)
	if code != "" {
		inv.AddError("k8s", code)
		return
	}
	k8s.PodInfo = pod
	k8s.PodConditions = conditions

	events, code := deps.Kube.ListEvents(ctx, target.Namespace, "Pod", target.Pod, podEventLimit)
	if code != "" {
		inv.AddError("k8s", code)
	} else {
		k8s.PodEvents = events
	}

	chain, code := deps.Kube.GetOwnerChain(ctx, target.Namespace, target.Pod)
	if code != "" {
		inv.AddError("k8s", code)
	} else {
		k8s.OwnerChain = chain
	}

	if kind, name := workloadFromChain(chain); kind != "" {
		rollout, code := deps.Kube.GetRolloutStatus(ctx, target.Namespace, kind, name)
		if code != "" {
			inv.AddError("k8s", code)
		} else {
			k8s.RolloutStatus = rollout
		}
	}

	if inv.Family == models.FamilyCrashloop {
		augmentCrashloop(ctx, deps, inv, k8s)
	}
}

// collectWorkloadView is the reduced collection for non-pod and historical
// targets: workload-level events and rollout status only.
func collectWorkloadView(ctx context.Context, deps *Deps, inv *models.Investigation, k8s *models.K8sEvidence) {
	target := inv.Target
	if target.Namespace == "" {
		return
	}
	if target.WorkloadKind != "" && target.WorkloadName != "" {
		rollout, code := deps.Kube.GetRolloutStatus(ctx, target.Namespace, target.WorkloadKind, target.WorkloadName)
		if code != "" {
			inv.AddError("k8s", code)
		} else {
			k8s.RolloutStatus = rollout
		}
	}
	events, code := deps.Kube.ListEvents(ctx, target.Namespace, "", target.WorkloadName, podEventLimit)
	if code != "" {
		inv.AddError("k8s", code)
	} else {
		k8s.PodEvents = events
	}
}

// augmentCrashloop adds the three crashloop meta fields: previous container
// logs, probe-failure classification, and crash duration.
func augmentCrashloop(ctx context.Context, deps *Deps, inv *models.Investigation, k8s *models.K8sEvidence) {
	target := inv.Target

	entries, code := deps.Kube.GetPreviousContainerLogs(ctx, target.Namespace, target.Pod, target.Container, previousLogTailLines)
	if code != "" {
		inv.AddError("k8s", code)
	} else {
		k8s.PreviousContainerLogs = entries
	}

	k8s.ProbeFailureType = classifyProbeFailure(k8s.PodEvents)
	k8s.CrashDurationSeconds = crashDuration(k8s.PodInfo)
}

// classifyProbeFailure scans pod events for probe-failure messages. Liveness
// wins when both appear: it explains restarts, readiness does not.
func classifyProbeFailure(events []models.K8sEvent) models.ProbeFailureType {
	result := models.ProbeFailureNone
	for _, ev := range events {
		switch {
		case strings.Contains(ev.Message, "Liveness probe failed"):
			return models.ProbeFailureLiveness
		case strings.Contains(ev.Message, "Readiness probe failed"):
			result = models.ProbeFailureReadiness
		}
	}
	return result
}

// crashDuration is finished_at − started_at of the most-restarted
// container's last termination, in seconds. Zero when unknown.
func crashDuration(pod *models.PodInfo) float64 {
	if pod == nil {
		return 0
	}
	restarts := -1
	var duration float64
	for _, c := range pod.Containers {
		t := c.LastTerminated
		if t == nil || t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
			continue
		}
		if c.RestartCount > restarts {
			restarts = c.RestartCount
			duration = t.FinishedAt.Sub(t.StartedAt).Seconds()
		}
	}
	return duration
}

// workloadFromChain picks the top of the owner chain as the controlling
// workload.
func workloadFromChain(chain []models.OwnerRef) (kind, name string) {
	if len(chain) == 0 {
		return "", ""
	}
	top := chain[len(chain)-1]
	return top.Kind, top.Name
}
