package analysis

import "github.com/sleuthops/sleuth/pkg/models"

// Capacity assessments, ordered worst-first. Utilization thresholds match
// the hypothesis rules: 90% of a limit is the danger line.
const (
	capacityMemoryHeadroomLow = "memory_headroom_low"
	capacityCPUHeadroomLow    = "cpu_headroom_low"
	capacityCPUThrottled      = "cpu_throttled"
	capacityHealthy           = "healthy"
	capacityUnknown           = "unknown"
)

// AnalyzeCapacity compares the latest usage samples against configured
// limits and reports the dominant constraint. Memory pressure outranks CPU
// pressure (it kills, CPU only slows).
func AnalyzeCapacity(inv *models.Investigation) *models.CapacitySummary {
	summary := &models.CapacitySummary{Assessment: capacityUnknown}
	m := inv.Evidence.Metrics
	if m == nil {
		return summary
	}

	known := false
	if ratio, ok := usageRatio(m.MemoryUsage.Series, m.MemoryLimits.Series); ok {
		summary.MemoryUtilization = ratio
		known = true
	}
	if ratio, ok := usageRatio(m.CPUUsage.Series, m.CPULimits.Series); ok {
		summary.CPUUtilization = ratio
		known = true
	}
	if maxSeriesValue(m.CPUThrottling.Series) > 0 {
		summary.CPUThrottled = true
		known = true
	}

	switch {
	case summary.MemoryUtilization > 0.9:
		summary.Assessment = capacityMemoryHeadroomLow
	case summary.CPUUtilization > 0.9:
		summary.Assessment = capacityCPUHeadroomLow
	case summary.CPUThrottled:
		summary.Assessment = capacityCPUThrottled
	case known:
		summary.Assessment = capacityHealthy
	}
	return summary
}
