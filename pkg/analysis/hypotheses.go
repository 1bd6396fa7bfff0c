package analysis

import (
	"fmt"
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
)

// BuildHypotheses runs a small rule set over the evidence; each hit becomes
// one hypothesis with suggested follow-up tests. Rules fire independently
// and in declaration order, so output order is deterministic.
func BuildHypotheses(inv *models.Investigation, features *models.Features) []models.Hypothesis {
	var out []models.Hypothesis

	for _, c := range features.Containers {
		if c.Reason == "OOMKilled" || c.ExitCode == 137 {
			out = append(out, models.Hypothesis{
				Summary:    fmt.Sprintf("container %s was OOM-killed; the memory limit is likely too low for its working set", c.Name),
				Confidence: "high",
				NextTests: []string{
					"plot container_memory_working_set_bytes against the limit over the last 24h",
					"check for a recent change to the memory limit or to the workload's input volume",
				},
			})
			break
		}
	}

	if features.WaitingReason == "ImagePullBackOff" || features.WaitingReason == "ErrImagePull" {
		out = append(out, models.Hypothesis{
			Summary:    "the image cannot be pulled; the tag may not exist or registry credentials may be missing",
			Confidence: "high",
			NextTests: []string{
				"verify the image tag exists in the registry",
				"check imagePullSecrets on the pod's service account",
			},
		})
	}

	if k8s := inv.Evidence.K8s; k8s != nil && k8s.RolloutStatus != nil && !k8s.RolloutStatus.Healthy {
		rs := k8s.RolloutStatus
		out = append(out, models.Hypothesis{
			Summary: fmt.Sprintf("%s %s rollout is unhealthy (%d/%d ready); a recent deploy may have introduced the failure",
				rs.Kind, rs.Name, rs.ReadyReplicas, rs.Replicas),
			Confidence: "medium",
			NextTests: []string{
				"diff the current and previous workload revisions",
				"correlate the alert start with the rollout timestamp",
			},
		})
	}

	if logs := inv.Evidence.Logs; logs != nil {
		for _, pattern := range logs.ErrorPatterns {
			lower := strings.ToLower(pattern)
			if strings.Contains(lower, "connection refused") || strings.Contains(lower, "econnrefused") {
				out = append(out, models.Hypothesis{
					Summary:    "logs show refused connections; a downstream dependency may be unavailable",
					Confidence: "medium",
					NextTests: []string{
						"identify the refused host:port from the log lines and check that service's health",
					},
				})
				break
			}
		}
	}

	out = append(out, capacityHypotheses(inv.Evidence.Metrics)...)

	if gh := inv.Evidence.GitHub; gh != nil {
		for _, run := range gh.WorkflowRuns {
			if run.Conclusion == "failure" {
				out = append(out, models.Hypothesis{
					Summary:    fmt.Sprintf("recent CI run %q failed on %s; a broken build or deploy may be involved", run.Name, run.Branch),
					Confidence: "low",
					NextTests:  []string{"inspect the failed workflow's job logs"},
				})
				break
			}
		}
	}

	return out
}

// capacityHypotheses compares the latest usage against limits. A container
// running within 10% of a limit is one burst away from throttling or an
// OOM kill.
func capacityHypotheses(m *models.MetricsEvidence) []models.Hypothesis {
	if m == nil {
		return nil
	}
	var out []models.Hypothesis
	if ratio, ok := usageRatio(m.MemoryUsage.Series, m.MemoryLimits.Series); ok && ratio > 0.9 {
		out = append(out, models.Hypothesis{
			Summary:    fmt.Sprintf("memory usage is at %.0f%% of the limit; the pod is close to an OOM kill", ratio*100),
			Confidence: "medium",
			NextTests:  []string{"raise the memory limit or profile the process for growth"},
		})
	}
	if ratio, ok := usageRatio(m.CPUUsage.Series, m.CPULimits.Series); ok && ratio > 0.9 {
		out = append(out, models.Hypothesis{
			Summary:    fmt.Sprintf("CPU usage is at %.0f%% of the limit; throttling is likely", ratio*100),
			Confidence: "medium",
			NextTests:  []string{"check container_cpu_cfs_throttled_periods_total for the same window"},
		})
	}
	return out
}

func usageRatio(usage, limits []models.TimeSeries) (float64, bool) {
	u := latestSeriesSum(usage)
	l := latestSeriesSum(limits)
	if u <= 0 || l <= 0 {
		return 0, false
	}
	return u / l, true
}

// ClassifyNoise flags alerts whose evidence shows nothing wrong: likely
// threshold noise or an already-recovered condition.
func ClassifyNoise(inv *models.Investigation, features *models.Features) *models.NoiseVerdict {
	if inv.Alert.NormalizedState == models.AlertStateResolved {
		return &models.NoiseVerdict{Noisy: true, Reason: "alert already resolved at investigation time"}
	}
	healthyPod := features.PodPhase == "Running" && features.Ready &&
		features.RestartRate5mMax == 0 && features.WaitingReason == ""
	if healthyPod && features.ErrorPatternCount == 0 && features.HTTP5xxRate == 0 {
		return &models.NoiseVerdict{Noisy: true, Reason: "target looks healthy across pod status, restarts, logs, and traffic"}
	}
	return &models.NoiseVerdict{Noisy: false}
}
