package collectors

import (
	"context"

	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/promql"
)

// CollectMetrics fills the metrics slot. Pod-scoped targets get the full
// baseline signal set; service-shaped targets get the HTTP 5xx signal built
// from whichever identifying labels the alert carried.
func CollectMetrics(ctx context.Context, deps *Deps, inv *models.Investigation) {
	if deps.Metrics == nil {
		return
	}
	target := inv.Target
	m := inv.Evidence.EnsureMetrics()

	if target.Pod != "" && target.Namespace != "" {
		pod, ns := target.Pod, target.Namespace
		fill := func(slot *models.MetricSlot, query string) {
			series, code := deps.Metrics.Range(ctx, query, inv.Window)
			if code != "" {
				slot.Set(nil, models.StatusUnavailable, code)
				inv.AddError("metrics", code)
				return
			}
			if len(series) == 0 {
				slot.Set(nil, models.StatusEmpty, "no_series")
				return
			}
			slot.Set(series, models.StatusOK, "")
		}

		fill(&m.CPUThrottling, promql.CPUThrottlingQuery(ns, pod))
		fill(&m.CPUUsage, promql.CPUUsageQuery(ns, pod))
		fill(&m.CPULimits, promql.CPULimitsQuery(ns, pod))
		fill(&m.MemoryUsage, promql.MemoryUsageQuery(ns, pod))
		fill(&m.MemoryLimits, promql.MemoryLimitsQuery(ns, pod))
		fill(&m.Restarts, promql.RestartsQuery(ns, pod))
		fill(&m.PodPhase, promql.PodPhaseQuery(ns, pod))
	}

	if selector := http5xxSelector(target); len(selector) > 0 {
		series, code := deps.Metrics.Range(ctx, promql.HTTP5xxQuery(selector), inv.Window)
		switch {
		case code != "":
			m.HTTP5xx.Set(nil, models.StatusUnavailable, code)
			inv.AddError("metrics", code)
		case len(series) == 0:
			m.HTTP5xx.Set(nil, models.StatusEmpty, "no_series")
		default:
			m.HTTP5xx.Set(series, models.StatusOK, "")
		}
	}
}

// http5xxSelector builds the 5xx matcher from the service-identifying
// labels, most specific first.
func http5xxSelector(target models.TargetRef) map[string]string {
	selector := map[string]string{}
	if target.Service != "" {
		selector["service"] = target.Service
	}
	if target.Job != "" {
		selector["job"] = target.Job
	}
	if target.Instance != "" {
		selector["instance"] = target.Instance
	}
	return selector
}
