package analysis

import (
	"fmt"

	"github.com/sleuthops/sleuth/pkg/models"
)

// EnrichFamily dispatches family-specific enrichment. Only crashloop has a
// dedicated decision table; every other family gets a baseline enrichment
// labelled by family so readers can tell a generic pass from a missing one.
func EnrichFamily(inv *models.Investigation, features *models.Features) *models.Decision {
	if inv.Family == models.FamilyCrashloop {
		return EnrichCrashloop(inv, features)
	}
	return enrichBaseline(inv, features)
}

func enrichBaseline(inv *models.Investigation, features *models.Features) *models.Decision {
	d := &models.Decision{
		Label: fmt.Sprintf("family_baseline:%s", inv.Family),
	}
	if features.PodPhase != "" {
		d.Why = append(d.Why, fmt.Sprintf("pod phase is %s (ready=%t)", features.PodPhase, features.Ready))
	}
	if features.WaitingReason != "" {
		d.Why = append(d.Why, fmt.Sprintf("container waiting: %s", features.WaitingReason))
	}
	if len(features.EventReasons) > 0 {
		d.Why = append(d.Why, fmt.Sprintf("recent event reasons: %v", features.EventReasons))
	}
	if features.HTTP5xxRate > 0 {
		d.Why = append(d.Why, fmt.Sprintf("HTTP 5xx rate is %.3f/s across %d series",
			features.HTTP5xxRate, features.HTTP5xxSeries))
	}
	if features.LogsStatus == models.StatusOK && features.ErrorPatternCount > 0 {
		d.Why = append(d.Why, fmt.Sprintf("%d distinct error patterns in the log tail", features.ErrorPatternCount))
	}
	if len(d.Why) == 0 {
		d.Why = append(d.Why, "no anomalous evidence was collected for this family")
	}

	switch inv.Family {
	case models.FamilyCPUThrottling:
		d.NextSteps = append(d.NextSteps,
			"compare container_cpu_cfs_throttled_periods_total against quota; consider raising the CPU limit")
	case models.FamilyOOMKilled, models.FamilyMemoryPressure:
		d.NextSteps = append(d.NextSteps,
			"compare container_memory_working_set_bytes against the memory limit over the window")
	case models.FamilyHTTP5xx:
		d.NextSteps = append(d.NextSteps,
			"break the 5xx rate down by handler/route and correlate with recent deploys")
	case models.FamilyTargetDown:
		d.NextSteps = append(d.NextSteps,
			"check whether the scrape target's endpoints exist and the pod backing them is running")
	case models.FamilyJobFailed:
		d.NextSteps = append(d.NextSteps,
			"inspect the newest pod of the job (label selector job-name=<job>) and its termination state")
	default:
		d.NextSteps = append(d.NextSteps,
			"review the collected events and log tail; widen the window with a re-run if the onset predates it")
	}
	return d
}
