package kube

import (
	"bufio"
	"io"
	"sort"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/sleuthops/sleuth/pkg/models"
)

// adaptPod projects a corev1.Pod onto the closed evidence model. Unknown
// fields are dropped, not propagated.
func adaptPod(pod *corev1.Pod) (*models.PodInfo, []models.PodCondition) {
	info := &models.PodInfo{
		Name:        pod.Name,
		Namespace:   pod.Namespace,
		NodeName:    pod.Spec.NodeName,
		Phase:       string(pod.Status.Phase),
		Labels:      pod.Labels,
		Annotations: pod.Annotations,
	}
	if pod.Status.StartTime != nil {
		info.StartTime = pod.Status.StartTime.Time
	}

	ready := false
	var conditions []models.PodCondition
	for _, c := range pod.Status.Conditions {
		conditions = append(conditions, models.PodCondition{
			Type:    string(c.Type),
			Status:  string(c.Status),
			Reason:  c.Reason,
			Message: c.Message,
		})
		if c.Type == corev1.PodReady && c.Status == corev1.ConditionTrue {
			ready = true
		}
	}
	info.Ready = ready

	for _, cs := range pod.Status.ContainerStatuses {
		info.Containers = append(info.Containers, adaptContainerStatus(cs))
	}
	for _, c := range pod.Spec.Containers {
		info.Images = append(info.Images, c.Image)
	}
	return info, conditions
}

func adaptContainerStatus(cs corev1.ContainerStatus) models.ContainerInfo {
	ci := models.ContainerInfo{
		Name:         cs.Name,
		Image:        cs.Image,
		Ready:        cs.Ready,
		RestartCount: int(cs.RestartCount),
	}
	if cs.State.Waiting != nil {
		ci.WaitingReason = cs.State.Waiting.Reason
	}
	if term := cs.LastTerminationState.Terminated; term != nil {
		ci.LastTerminated = &models.TerminationInfo{
			ExitCode:   int(term.ExitCode),
			Reason:     term.Reason,
			StartedAt:  term.StartedAt.Time,
			FinishedAt: term.FinishedAt.Time,
		}
	}
	return ci
}

// adaptEvents converts and sorts events oldest-first.
func adaptEvents(items []corev1.Event) []models.K8sEvent {
	events := make([]models.K8sEvent, 0, len(items))
	for _, e := range items {
		events = append(events, models.K8sEvent{
			Reason:    e.Reason,
			Message:   e.Message,
			Type:      e.Type,
			Count:     int(e.Count),
			Object:    e.InvolvedObject.Kind + "/" + e.InvolvedObject.Name,
			LastSeen:  e.LastTimestamp.Time,
			FirstSeen: e.FirstTimestamp.Time,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].LastSeen.Before(events[j].LastSeen)
	})
	return events
}

func adaptDeploymentRollout(d *appsv1.Deployment) *models.RolloutStatus {
	var replicas int32
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	rs := &models.RolloutStatus{
		Kind:                "Deployment",
		Name:                d.Name,
		Replicas:            replicas,
		ReadyReplicas:       d.Status.ReadyReplicas,
		UpdatedReplicas:     d.Status.UpdatedReplicas,
		UnavailableReplicas: d.Status.UnavailableReplicas,
	}
	rs.Healthy = replicas > 0 && rs.ReadyReplicas == replicas && rs.UpdatedReplicas == replicas
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentProgressing && c.Status != corev1.ConditionTrue {
			rs.Healthy = false
			rs.Message = c.Message
		}
	}
	return rs
}

func adaptStatefulSetRollout(ss *appsv1.StatefulSet) *models.RolloutStatus {
	var replicas int32
	if ss.Spec.Replicas != nil {
		replicas = *ss.Spec.Replicas
	}
	rs := &models.RolloutStatus{
		Kind:            "StatefulSet",
		Name:            ss.Name,
		Replicas:        replicas,
		ReadyReplicas:   ss.Status.ReadyReplicas,
		UpdatedReplicas: ss.Status.UpdatedReplicas,
	}
	rs.Healthy = replicas > 0 && rs.ReadyReplicas == replicas
	return rs
}

func adaptDaemonSetRollout(ds *appsv1.DaemonSet) *models.RolloutStatus {
	rs := &models.RolloutStatus{
		Kind:            "DaemonSet",
		Name:            ds.Name,
		Replicas:        ds.Status.DesiredNumberScheduled,
		ReadyReplicas:   ds.Status.NumberReady,
		UpdatedReplicas: ds.Status.UpdatedNumberScheduled,
	}
	rs.Healthy = rs.Replicas > 0 && rs.ReadyReplicas == rs.Replicas
	return rs
}

// parseTimestampedLogs reads a kubelet log stream requested with
// Timestamps=true: "RFC3339Nano<space>message" per line. Lines without a
// parseable timestamp keep a zero timestamp rather than being dropped.
func parseTimestampedLogs(r io.Reader) []models.LogEntry {
	var entries []models.LogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entry := models.LogEntry{Message: line}
		if idx := strings.IndexByte(line, ' '); idx > 0 {
			if ts, err := time.Parse(time.RFC3339Nano, line[:idx]); err == nil {
				entry.Timestamp = ts.UTC()
				entry.Message = line[idx+1:]
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
