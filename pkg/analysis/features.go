// Package analysis turns collected evidence into deterministic features,
// enrichment, scores, and verdicts, plus the optional LLM insight pass.
// Every function here except the LLM pass is a pure function of the
// Investigation: same evidence in, same analysis out.
package analysis

import (
	"github.com/sleuthops/sleuth/pkg/models"
)

const maxContainerSummaries = 5

// ExtractFeatures derives the feature record every later pass reads.
func ExtractFeatures(inv *models.Investigation) *models.Features {
	f := &models.Features{
		Family:         inv.Family,
		HistoricalMode: inv.HistoricalMode,
	}

	if k8s := inv.Evidence.K8s; k8s != nil && k8s.PodInfo != nil {
		pod := k8s.PodInfo
		f.PodPhase = pod.Phase
		f.Ready = pod.Ready
		for _, c := range pod.Containers {
			if f.WaitingReason == "" && c.WaitingReason != "" {
				f.WaitingReason = c.WaitingReason
			}
			if len(f.Containers) < maxContainerSummaries {
				summary := models.ContainerSummary{
					Name:          c.Name,
					WaitingReason: c.WaitingReason,
					RestartCount:  c.RestartCount,
				}
				if c.LastTerminated != nil {
					summary.ExitCode = c.LastTerminated.ExitCode
					summary.Reason = c.LastTerminated.Reason
				}
				f.Containers = append(f.Containers, summary)
			}
		}
	}
	if k8s := inv.Evidence.K8s; k8s != nil {
		f.EventReasons = recentEventReasons(k8s.PodEvents, 10)
	}

	if m := inv.Evidence.Metrics; m != nil {
		f.RestartRate5mMax = maxSeriesValue(m.Restarts.Series)
		f.HTTP5xxRate = latestSeriesSum(m.HTTP5xx.Series)
		f.HTTP5xxSeries = len(m.HTTP5xx.Series)
	}

	if logs := inv.Evidence.Logs; logs != nil {
		f.LogsStatus = logs.Status
		f.ErrorPatternCount = len(logs.ErrorPatterns)
	}

	return f
}

// recentEventReasons returns up to limit distinct reasons, newest last
// (events arrive oldest-first).
func recentEventReasons(events []models.K8sEvent, limit int) []string {
	seen := map[string]bool{}
	var reasons []string
	for _, ev := range events {
		if ev.Reason == "" || seen[ev.Reason] {
			continue
		}
		seen[ev.Reason] = true
		reasons = append(reasons, ev.Reason)
		if len(reasons) >= limit {
			break
		}
	}
	return reasons
}

// maxSeriesValue scans every sample and returns the largest value seen.
func maxSeriesValue(series []models.TimeSeries) float64 {
	var max float64
	for _, s := range series {
		for _, sample := range s.Samples {
			if sample.Value > max {
				max = sample.Value
			}
		}
	}
	return max
}

// latestSeriesSum sums the final sample of each series.
func latestSeriesSum(series []models.TimeSeries) float64 {
	var sum float64
	for _, s := range series {
		if len(s.Samples) > 0 {
			sum += s.Samples[len(s.Samples)-1].Value
		}
	}
	return sum
}
