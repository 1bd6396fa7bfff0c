package tools

import (
	"context"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

const defaultMemoryLimit = 5

func (d *Dispatcher) memorySimilarCases(_ context.Context, req Request, inv *models.Investigation) ToolResult {
	limit := clamp(req.Args.Int("limit", defaultMemoryLimit), 1, 50)
	cases := d.memory.SimilarCases(string(inv.Family), inv.Target.WorkloadName, limit)
	return ok(map[string]any{"cases": cases})
}

func (d *Dispatcher) memorySkills(_ context.Context, req Request, inv *models.Investigation) ToolResult {
	limit := clamp(req.Args.Int("limit", defaultMemoryLimit), 1, 50)
	skills := d.memory.Skills(string(inv.Family), limit)
	return ok(map[string]any{"skills": skills})
}

func (d *Dispatcher) actionsList(_ context.Context, req Request, _ *models.Investigation) ToolResult {
	caseID := req.CaseID
	if caseID == "" {
		caseID = req.Args.String("case_id")
	}
	if caseID == "" {
		return fail("missing_required_args:case_id")
	}
	return ok(map[string]any{"actions": d.actions.List(caseID)})
}

func (d *Dispatcher) actionsPropose(_ context.Context, req Request, _ *models.Investigation) ToolResult {
	if !req.ActionPolicy.Enabled {
		return fail("tool_not_allowed")
	}
	caseID := req.CaseID
	if caseID == "" {
		caseID = req.Args.String("case_id")
	}
	actionType := req.Args.String("type")
	if caseID == "" || actionType == "" {
		return fail("missing_required_args:case_id,type")
	}
	if !allowed(req.ActionPolicy.ActionTypeAllowlist, actionType) {
		return fail("action_type_not_allowed:" + actionType)
	}

	action, code := d.actions.Propose(caseID, actionType,
		req.Args.String("target"), req.Args.String("reason"),
		req.ActionPolicy.MaxActionsPerCase)
	if code != "" {
		return fail(code)
	}
	return ok(action)
}

func (d *Dispatcher) rerunInvestigation(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.runner == nil {
		return fail("rerun_unavailable")
	}
	if code := req.Args.requireStrings("time_window"); code != "" {
		return fail(code)
	}
	windowExpr := req.Args.String("time_window")
	duration, err := time.ParseDuration(windowExpr)
	if err != nil || duration <= 0 {
		return fail("invalid_time_window")
	}
	if max := req.Policy.MaxTimeWindowSeconds; max > 0 && duration > time.Duration(max)*time.Second {
		return fail("time_window_too_large")
	}

	// Rebuild a synthetic alert from the recorded one; reference_time=now
	// re-anchors the window on the present instead of the original onset.
	alert := inv.Alert
	if req.Args.String("reference_time") == "now" {
		alert.StartsAt = time.Time{}
	}

	rerun := d.runner.Run(ctx, alert, windowExpr)
	updated, err := rerun.MarshalProjection(models.ProjectionAnalysis)
	if err != nil {
		return fail("schema_dump_failed")
	}
	return ToolResult{
		OK:              true,
		Result:          map[string]any{"investigation_id": rerun.ID, "window": rerun.Window},
		UpdatedAnalysis: updated,
	}
}
