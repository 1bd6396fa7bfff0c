package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sleuthops/sleuth/pkg/collectors"
	"github.com/sleuthops/sleuth/pkg/models"
)

// Module is one diagnostic collection unit. Applies is consulted against
// the typed investigation; Run fills evidence slots and reports whether it
// produced anything. Modules in the registry run in declaration order and
// never concurrently with each other (their slot sets may overlap); the
// fan-out happens inside a module, across providers with disjoint slots.
type Module struct {
	Name    string
	Applies func(inv *models.Investigation) bool
	Run     func(ctx context.Context, deps *collectors.Deps, inv *models.Investigation, res collectors.Resolution) bool
}

// moduleRegistry is the preferred collection path. Exactly one of these
// matches most alerts; the registry order is the tiebreak.
var moduleRegistry = []Module{
	{
		Name: "crashloop",
		Applies: func(inv *models.Investigation) bool {
			return inv.Family == models.FamilyCrashloop && inv.Target.IsPodScoped()
		},
		Run: runPodCollection,
	},
	{
		Name: "job_failed",
		Applies: func(inv *models.Investigation) bool {
			return inv.Family == models.FamilyJobFailed
		},
		Run: runPodCollection,
	},
	{
		Name: "pod_baseline",
		Applies: func(inv *models.Investigation) bool {
			return inv.Target.IsPodScoped()
		},
		Run: runPodCollection,
	},
	{
		Name: "nonpod_baseline",
		Applies: func(inv *models.Investigation) bool {
			return !inv.Target.IsPodScoped()
		},
		Run: runNonPodCollection,
	},
}

// playbooks is the fallback path keyed by alertname; entries reuse the
// module contract.
var playbooks = map[string]Module{
	"KubePodCrashLooping": {Name: "crashloop_playbook", Run: runPodCollection},
	"CPUThrottlingHigh":   {Name: "cpu_playbook", Run: runPodCollection},
}

// runPodCollection is the shared pod-scoped collection: K8s snapshot (with
// the crashloop augmentation when the family asks), metric baselines, and
// the log tail. The three collectors own disjoint evidence slots, so they
// fan out.
func runPodCollection(ctx context.Context, deps *collectors.Deps, inv *models.Investigation, res collectors.Resolution) bool {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { collectors.CollectK8s(gctx, deps, inv); return nil })
	g.Go(func() error { collectors.CollectMetrics(gctx, deps, inv); return nil })
	g.Go(func() error { collectors.CollectLogs(gctx, deps, inv, res); return nil })
	_ = g.Wait()
	return anyEvidence(inv)
}

// runNonPodCollection covers service, node, and cluster targets: workload
// view of K8s, signal metrics, and logs when a pod pattern survived
// resolution.
func runNonPodCollection(ctx context.Context, deps *collectors.Deps, inv *models.Investigation, res collectors.Resolution) bool {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { collectors.CollectK8s(gctx, deps, inv); return nil })
	g.Go(func() error { collectors.CollectMetrics(gctx, deps, inv); return nil })
	if res.PodPattern != "" {
		g.Go(func() error { collectors.CollectLogs(gctx, deps, inv, res); return nil })
	}
	_ = g.Wait()
	return anyEvidence(inv)
}

func anyEvidence(inv *models.Investigation) bool {
	e := inv.Evidence
	switch {
	case e.K8s != nil && (e.K8s.PodInfo != nil || len(e.K8s.PodEvents) > 0 || e.K8s.RolloutStatus != nil):
		return true
	case e.Logs != nil && e.Logs.Status == models.StatusOK:
		return true
	case e.Metrics != nil:
		return true
	}
	return false
}

// collectEvidence runs the registry, falling back to a playbook when no
// module produced anything.
func collectEvidence(ctx context.Context, deps *collectors.Deps, inv *models.Investigation, res collectors.Resolution) {
	succeeded := false
	for _, module := range moduleRegistry {
		if !module.Applies(inv) {
			continue
		}
		if module.Run(ctx, deps, inv, res) {
			succeeded = true
		}
		// Registry modules are exclusive by construction; first match runs.
		break
	}
	if succeeded {
		return
	}

	fallback, ok := playbooks[inv.Alert.Name()]
	if !ok {
		if inv.Target.IsPodScoped() {
			fallback = Module{Name: "pod_baseline", Run: runPodCollection}
		} else {
			fallback = Module{Name: "nonpod_baseline", Run: runNonPodCollection}
		}
	}
	fallback.Run(ctx, deps, inv, res)
}
