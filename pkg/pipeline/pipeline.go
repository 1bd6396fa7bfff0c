// Package pipeline orchestrates one investigation per alert: normalize,
// anchor the window, classify, collect evidence, analyze, and optionally
// enrich with an LLM. The single public operation never fails; every
// failure lands in Investigation.Errors instead.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sleuthops/sleuth/pkg/analysis"
	"github.com/sleuthops/sleuth/pkg/collectors"
	"github.com/sleuthops/sleuth/pkg/models"
)

// Pipeline holds the wired providers for the lifetime of the process.
type Pipeline struct {
	deps     *collectors.Deps
	enricher *analysis.Enricher
	logger   *slog.Logger
}

// New wires a pipeline. enricher may be nil when LLM enrichment is
// disabled.
func New(deps *collectors.Deps, enricher *analysis.Enricher) *Pipeline {
	return &Pipeline{
		deps:     deps,
		enricher: enricher,
		logger:   slog.Default(),
	}
}

// Run executes one investigation. It never returns an error and never
// panics past its own boundary.
func (p *Pipeline) Run(ctx context.Context, alert models.AlertEvent, windowExpr string) *models.Investigation {
	inv := &models.Investigation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	inv.EnableConcurrentErrors()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Investigation panicked", "investigation_id", inv.ID, "panic", r)
			inv.AddError("pipeline", fmt.Sprintf("panic:%v", r))
		}
	}()

	// 1. Normalize the alert event.
	alert.Normalize()
	applyJobHeuristic(&alert)
	inv.Alert = alert

	// 2. Anchor the time window on the alert start, else on now.
	window, err := models.AnchorWindow(windowExpr, alert.StartsAt, time.Now().UTC())
	if err != nil {
		inv.AddError("pipeline", "invalid_time_window")
		window, _ = models.AnchorWindow("1h", alert.StartsAt, time.Now().UTC())
	}
	inv.Window = window

	// 3. Classify the family once, before any collector runs.
	family, hint := DetectFamily(&alert)
	inv.Family = family

	// 4. Type the target.
	clusterName := ""
	if p.deps.Settings != nil {
		clusterName = p.deps.Settings.ClusterName
	}
	inv.Target = DeriveTarget(&alert, family, hint, clusterName)

	p.logger.Info("Investigation started",
		"investigation_id", inv.ID,
		"alert", alert.Name(),
		"family", family,
		"target_type", inv.Target.TargetType,
		"namespace", inv.Target.Namespace,
		"pod", inv.Target.Pod)

	// Sequential pre-flight: Job pod resolution and the historical
	// fallback, both of which may rewrite the target and window.
	res := collectors.ResolveTarget(ctx, p.deps, inv)

	// 5-6. Diagnostic modules with playbook fallback.
	collectEvidence(ctx, p.deps, inv, res)

	// 7. Promote workload identity and org metadata onto the target.
	p.promoteTarget(ctx, inv)

	// 8. Optional cloud and SCM evidence, each guarded.
	if p.deps.Settings != nil && p.deps.Settings.AWSEvidenceEnabled {
		p.guard(inv, "aws", func() { collectors.CollectAWS(ctx, p.deps, inv) })
	}
	if p.deps.Settings != nil && p.deps.Settings.GitHubEvidenceEnabled {
		p.guard(inv, "github", func() { collectors.CollectGitHub(ctx, p.deps, inv) })
	}

	// 9-10. Deterministic analysis passes.
	analysis.Analyze(inv)

	// 11. Optional LLM enrichment; cannot touch scores or verdict.
	if p.enricher != nil && p.deps.Settings != nil && p.deps.Settings.LLM.Enabled {
		p.guard(inv, "llm", func() { p.enricher.Enrich(ctx, inv) })
	}

	p.logger.Info("Investigation finished",
		"investigation_id", inv.ID,
		"errors", len(inv.Errors),
		"historical_mode", inv.HistoricalMode)
	return inv
}

// applyJobHeuristic drops the pod label from Job alerts: it names the
// scraper's pod, not the job's.
func applyJobHeuristic(alert *models.AlertEvent) {
	name := alert.Name()
	if (name == "KubeJobFailed" || name == "JobFailed") && alert.Labels["job_name"] != "" {
		delete(alert.Labels, "pod")
	}
}

// promoteTarget fills workload identity from rollout status (trusted) or
// the owner chain, then team/environment from alert labels, workload
// labels, and pod labels in that order.
func (p *Pipeline) promoteTarget(ctx context.Context, inv *models.Investigation) {
	target := &inv.Target
	k8s := inv.Evidence.K8s

	if k8s != nil {
		if rs := k8s.RolloutStatus; rs != nil && rs.Name != "" {
			target.WorkloadKind = rs.Kind
			target.WorkloadName = rs.Name
		} else if len(k8s.OwnerChain) > 0 {
			top := k8s.OwnerChain[len(k8s.OwnerChain)-1]
			target.WorkloadKind = top.Kind
			target.WorkloadName = top.Name
		} else if target.Pod != "" && target.Namespace != "" && p.deps.Kube != nil {
			// One best-effort owner-chain fetch when collection skipped it.
			chain, code := p.deps.Kube.GetOwnerChain(ctx, target.Namespace, target.Pod)
			if code == "" && len(chain) > 0 {
				k8s.OwnerChain = chain
				top := chain[len(chain)-1]
				target.WorkloadKind = top.Kind
				target.WorkloadName = top.Name
			}
		}
	}

	sources := []map[string]string{inv.Alert.Labels}
	if k8s != nil {
		for _, ref := range k8s.OwnerChain {
			if len(ref.Labels) > 0 {
				sources = append(sources, ref.Labels)
			}
		}
		if k8s.PodInfo != nil && len(k8s.PodInfo.Labels) > 0 {
			sources = append(sources, k8s.PodInfo.Labels)
		}
	}
	for _, labels := range sources {
		if target.Team == "" {
			target.Team = firstLabel(labels, teamLabelKeys...)
		}
		if target.Environment == "" {
			target.Environment = firstLabel(labels, envLabelKeys...)
		}
	}
}

// guard wraps an optional stage so a panic or misbehavior inside it can
// never take down the run.
func (p *Pipeline) guard(inv *models.Investigation, subsystem string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Optional stage panicked", "subsystem", subsystem, "panic", r)
			inv.AddError(subsystem, fmt.Sprintf("panic:%v", r))
		}
	}()
	fn()
}
