package analysis

import (
	"fmt"
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Crashloop enrichment labels, highest precedence first in the table below.
const (
	LabelSuspectedOOMCrash           = "suspected_oom_crash"
	LabelSuspectedLivenessProbe      = "suspected_liveness_probe_failure"
	LabelSuspectedDependencyDown     = "suspected_dependency_unavailable"
	LabelSuspectedConfigOrPermission = "suspected_config_or_permission_error"
	LabelSuspectedStartupFailure     = "suspected_app_startup_failure"
	LabelSuspectedRuntimeFailure     = "suspected_app_runtime_failure"
	LabelUnknownNeedsHuman           = "unknown_needs_human"
)

// EnrichCrashloop runs the crashloop decision table over the collected
// evidence and builds the label plus its why/next-steps bullets.
func EnrichCrashloop(inv *models.Investigation, features *models.Features) *models.Decision {
	k8s := inv.Evidence.K8s
	term := worstTermination(k8s)
	errText := crashErrorText(inv)

	var probeFailure models.ProbeFailureType
	var crashDuration float64
	if k8s != nil {
		probeFailure = k8s.ProbeFailureType
		crashDuration = k8s.CrashDurationSeconds
	}

	label := LabelUnknownNeedsHuman
	switch {
	case term != nil && (term.ExitCode == 137 || term.Reason == "OOMKilled"):
		label = LabelSuspectedOOMCrash
	case term != nil && term.ExitCode == 0 && probeFailure == models.ProbeFailureLiveness:
		label = LabelSuspectedLivenessProbe
	case strings.Contains(errText, "econnrefused"), strings.Contains(errText, "connection refused"):
		label = LabelSuspectedDependencyDown
	case strings.Contains(errText, "filenotfounderror"),
		strings.Contains(errText, "permission denied"),
		strings.Contains(errText, "operation not permitted"):
		label = LabelSuspectedConfigOrPermission
	case term != nil && term.ExitCode == 1 && crashDuration > 0 && crashDuration < 10:
		label = LabelSuspectedStartupFailure
	case term != nil && term.ExitCode == 1 && crashDuration > 60:
		label = LabelSuspectedRuntimeFailure
	}

	d := &models.Decision{Label: label}
	d.Why = crashloopWhy(features, term, probeFailure, crashDuration)
	d.NextSteps = crashloopNextSteps(inv)
	return d
}

func crashloopWhy(features *models.Features, term *models.TerminationInfo, probe models.ProbeFailureType, crashDuration float64) []string {
	var why []string
	if features.PodPhase != "" {
		why = append(why, fmt.Sprintf("pod phase is %s (ready=%t)", features.PodPhase, features.Ready))
	} else {
		why = append(why, "pod status could not be read")
	}
	why = append(why, fmt.Sprintf("max restart rate over 5m is %.3f/s", features.RestartRate5mMax))
	if term != nil {
		why = append(why, fmt.Sprintf("last termination: exit_code=%d reason=%s", term.ExitCode, term.Reason))
	}
	if crashDuration > 0 {
		why = append(why, fmt.Sprintf("container ran %.1fs before crashing", crashDuration))
	}
	if probe == models.ProbeFailureLiveness || probe == models.ProbeFailureReadiness {
		why = append(why, fmt.Sprintf("%s probe failures observed in pod events", probe))
	}
	return why
}

func crashloopNextSteps(inv *models.Investigation) []string {
	target := inv.Target
	if !target.IsPodScoped() {
		return []string{
			"no pod was resolved for this alert; follow the no-pod triage path (check workload rollout status and recent events at the namespace level)",
			fmt.Sprintf("query restart history: rate(kube_pod_container_status_restarts_total{namespace=%q}[5m])", target.Namespace),
		}
	}
	return []string{
		fmt.Sprintf("query restart history: rate(kube_pod_container_status_restarts_total{namespace=%q,pod=%q}[5m])",
			target.Namespace, target.Pod),
		fmt.Sprintf("inspect the previous container logs: kubectl logs -n %s %s --previous", target.Namespace, target.Pod),
		"compare memory usage against limits if the termination reason was OOMKilled",
	}
}

// worstTermination picks the termination record of the most-restarted
// container, the one the crashloop is almost certainly about.
func worstTermination(k8s *models.K8sEvidence) *models.TerminationInfo {
	if k8s == nil || k8s.PodInfo == nil {
		return nil
	}
	var term *models.TerminationInfo
	restarts := -1
	for _, c := range k8s.PodInfo.Containers {
		if c.LastTerminated != nil && c.RestartCount > restarts {
			restarts = c.RestartCount
			term = c.LastTerminated
		}
	}
	return term
}

// crashErrorText aggregates the text the table's message rules scan: the
// previous container's log lines plus parsed error patterns, lowercased.
func crashErrorText(inv *models.Investigation) string {
	var b strings.Builder
	if k8s := inv.Evidence.K8s; k8s != nil {
		for _, entry := range k8s.PreviousContainerLogs {
			b.WriteString(entry.Message)
			b.WriteByte('\n')
		}
	}
	if logs := inv.Evidence.Logs; logs != nil {
		for _, pattern := range logs.ErrorPatterns {
			b.WriteString(pattern)
			b.WriteByte('\n')
		}
	}
	return strings.ToLower(b.String())
}
