package analysis

import (
	"fmt"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

// recentPodAge is the threshold under which a pod counts as freshly
// started relative to the investigation window end.
const recentPodAge = 30 * time.Minute

// AnalyzeChanges correlates change signals with the alert: an in-flight
// rollout, a freshly started pod, commits landed inside the window, or
// cloud control-plane activity in the precursor window. All comparisons
// anchor on the window end, never on wall-clock time.
func AnalyzeChanges(inv *models.Investigation) *models.ChangeSummary {
	summary := &models.ChangeSummary{}
	anchor := inv.Window.End

	if k8s := inv.Evidence.K8s; k8s != nil {
		if rs := k8s.RolloutStatus; rs != nil && rs.UpdatedReplicas < rs.Replicas {
			summary.RolloutInProgress = true
			summary.Signals = append(summary.Signals,
				fmt.Sprintf("%s %s rollout in progress (%d/%d updated)", rs.Kind, rs.Name, rs.UpdatedReplicas, rs.Replicas))
		}
		if pod := k8s.PodInfo; pod != nil && !pod.StartTime.IsZero() && pod.StartTime.Before(anchor) {
			age := anchor.Sub(pod.StartTime)
			summary.PodAgeSeconds = age.Seconds()
			if age < recentPodAge {
				summary.PodStartedRecently = true
				summary.Signals = append(summary.Signals,
					fmt.Sprintf("pod started %s before the alert", age.Round(time.Second)))
			}
		}
	}

	if gh := inv.Evidence.GitHub; gh != nil {
		for _, c := range gh.RecentCommits {
			if !c.Timestamp.IsZero() && !c.Timestamp.Before(inv.Window.Start) && !c.Timestamp.After(anchor) {
				summary.RecentCommitCount++
			}
		}
		if summary.RecentCommitCount > 0 {
			summary.Signals = append(summary.Signals,
				fmt.Sprintf("%d commit(s) on %s inside the investigation window", summary.RecentCommitCount, gh.Repo))
		}
	}

	if aws := inv.Evidence.AWS; aws != nil && len(aws.CloudTrailEvents) > 0 {
		summary.CloudEventCount = len(aws.CloudTrailEvents)
		summary.Signals = append(summary.Signals,
			fmt.Sprintf("%d CloudTrail management event(s) in the precursor window", summary.CloudEventCount))
	}

	return summary
}
