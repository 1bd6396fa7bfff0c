package pipeline

import (
	"github.com/sleuthops/sleuth/pkg/models"
)

// sentinel label values that mean "absent".
func nonSentinel(v string) string {
	switch v {
	case "", "unknown", "none", "<none>":
		return ""
	}
	return v
}

// DeriveTarget builds the target reference from alert labels, then types
// it. Pod-scoped targets drop the scrape-target metadata (service, job,
// instance); non-pod families drop the pod.
func DeriveTarget(alert *models.AlertEvent, family models.Family, playbookHint, clusterName string) models.TargetRef {
	labels := alert.Labels
	target := models.TargetRef{
		Cluster:      nonSentinel(labels["cluster"]),
		Namespace:    nonSentinel(labels["namespace"]),
		Pod:          nonSentinel(labels["pod"]),
		Container:    nonSentinel(labels["container"]),
		WorkloadName: nonSentinel(firstLabel(labels, "workload", "deployment", "statefulset", "daemonset", "job_name")),
		Service:      nonSentinel(labels["service"]),
		Job:          nonSentinel(labels["job"]),
		Instance:     nonSentinel(labels["instance"]),
		Playbook:     playbookHint,
	}
	if target.Cluster == "" {
		target.Cluster = clusterName
	}
	if labels["deployment"] != "" {
		target.WorkloadKind = "Deployment"
	} else if labels["statefulset"] != "" {
		target.WorkloadKind = "StatefulSet"
	} else if labels["daemonset"] != "" {
		target.WorkloadKind = "DaemonSet"
	} else if labels["job_name"] != "" {
		target.WorkloadKind = "Job"
	}

	if nonPodFamilies[family] {
		target.Pod = ""
		target.Container = ""
	}

	switch {
	case target.Pod != "" && target.Namespace != "":
		target.TargetType = models.TargetTypePod
		// Scrape-target metadata is not incident identity for a pod.
		target.Service = ""
		target.Job = ""
		target.Instance = ""
	case target.Service != "":
		target.TargetType = models.TargetTypeService
	case target.Instance != "":
		target.TargetType = models.TargetTypeNode
	case target.Cluster != "":
		target.TargetType = models.TargetTypeCluster
	default:
		target.TargetType = models.TargetTypeUnknown
	}
	return target
}

func firstLabel(labels map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return ""
}

// Recognized org-metadata label keys, checked in order.
var (
	teamLabelKeys = []string{"team", "owner", "squad", "app.kubernetes.io/team"}
	envLabelKeys  = []string{"environment", "env", "tf_env", "app.kubernetes.io/environment"}
)
