package promql

import "fmt"

// Baseline query builders for pod-scoped signals. Selectors interpolate only
// namespace/pod/workload names, which come from Kubernetes object metadata.

// CPUThrottlingQuery measures the throttled share of CPU periods.
func CPUThrottlingQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`sum by (container) (rate(container_cpu_cfs_throttled_periods_total{namespace=%q, pod=%q}[5m]))`+
			` / sum by (container) (rate(container_cpu_cfs_periods_total{namespace=%q, pod=%q}[5m]))`,
		namespace, pod, namespace, pod)
}

// CPUUsageQuery measures CPU cores used per container.
func CPUUsageQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`sum by (container) (rate(container_cpu_usage_seconds_total{namespace=%q, pod=%q, container!=""}[5m]))`,
		namespace, pod)
}

// CPULimitsQuery reports configured CPU limits per container.
func CPULimitsQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`kube_pod_container_resource_limits{namespace=%q, pod=%q, resource="cpu"}`,
		namespace, pod)
}

// MemoryUsageQuery measures working-set bytes per container.
func MemoryUsageQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`container_memory_working_set_bytes{namespace=%q, pod=%q, container!=""}`,
		namespace, pod)
}

// MemoryLimitsQuery reports configured memory limits per container.
func MemoryLimitsQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`kube_pod_container_resource_limits{namespace=%q, pod=%q, resource="memory"}`,
		namespace, pod)
}

// RestartsQuery measures the container restart rate.
func RestartsQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`rate(kube_pod_container_status_restarts_total{namespace=%q, pod=%q}[5m])`,
		namespace, pod)
}

// PodPhaseQuery reports the kube_pod_status_phase signal.
func PodPhaseQuery(namespace, pod string) string {
	return fmt.Sprintf(
		`kube_pod_status_phase{namespace=%q, pod=%q} > 0`,
		namespace, pod)
}

// HTTP5xxQuery derives the 5xx request rate for a service-scoped target.
func HTTP5xxQuery(selector map[string]string) string {
	matcher := ""
	for _, key := range []string{"service", "job", "instance"} {
		if v := selector[key]; v != "" {
			if matcher != "" {
				matcher += ", "
			}
			matcher += fmt.Sprintf("%s=%q", key, v)
		}
	}
	return fmt.Sprintf(`sum (rate(http_requests_total{%s, code=~"5.."}[5m]))`, matcher)
}
