package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sleuthops/sleuth/pkg/collectors"
	"github.com/sleuthops/sleuth/pkg/masking"
	"github.com/sleuthops/sleuth/pkg/models"
)

// InvestigationRunner re-runs the pipeline for rerun.investigation without
// the tool runtime depending on the pipeline's wiring.
type InvestigationRunner interface {
	Run(ctx context.Context, alert models.AlertEvent, windowExpr string) *models.Investigation
}

// Request is one tool invocation from chat.
type Request struct {
	Policy       ChatPolicy
	ActionPolicy ActionPolicy
	ToolName     string
	Args         Args
	AnalysisJSON json.RawMessage
	CaseID       string
	RunID        string
}

// Dispatcher routes tool calls through policy preflight to handlers.
type Dispatcher struct {
	deps    *collectors.Deps
	runner  InvestigationRunner
	masker  *masking.Service
	memory  *MemoryStore
	actions *ActionStore
	logger  *slog.Logger
}

// NewDispatcher wires the runtime. runner may be nil (rerun is then
// unavailable); masker may be nil (redaction becomes a no-op and
// redact_secrets tools fail closed).
func NewDispatcher(deps *collectors.Deps, runner InvestigationRunner, masker *masking.Service) *Dispatcher {
	return &Dispatcher{
		deps:    deps,
		runner:  runner,
		masker:  masker,
		memory:  NewMemoryStore(),
		actions: NewActionStore(),
		logger:  slog.Default(),
	}
}

// Memory exposes the store so the serving layer can remember finished cases.
func (d *Dispatcher) Memory() *MemoryStore { return d.memory }

type toolSpec struct {
	capability func(ChatPolicy) bool
	handler    func(d *Dispatcher, ctx context.Context, req Request, inv *models.Investigation) ToolResult
}

// toolTable maps tool names to their capability flag and handler. Scope
// checks are shared preflight; per-tool argument rules live in handlers.
var toolTable = map[string]toolSpec{
	"promql.instant":              {func(p ChatPolicy) bool { return p.AllowPromQL }, (*Dispatcher).promqlInstant},
	"k8s.pod_context":             {func(p ChatPolicy) bool { return p.AllowK8sRead }, (*Dispatcher).k8sPodContext},
	"k8s.rollout_status":          {func(p ChatPolicy) bool { return p.AllowK8sRead }, (*Dispatcher).k8sRolloutStatus},
	"k8s.events":                  {func(p ChatPolicy) bool { return p.AllowK8sEvents }, (*Dispatcher).k8sEvents},
	"logs.tail":                   {func(p ChatPolicy) bool { return p.AllowLogsQuery }, (*Dispatcher).logsTail},
	"aws.ec2_status":              {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsEC2Status},
	"aws.volume_status":           {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsVolumeStatus},
	"aws.elb_health":              {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsELBHealth},
	"aws.rds_status":              {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsRDSStatus},
	"aws.ecr_images":              {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsECRImages},
	"aws.cloudtrail_events":       {func(p ChatPolicy) bool { return p.AllowAWSRead }, (*Dispatcher).awsCloudTrail},
	"github.recent_commits":       {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubRecentCommits},
	"github.workflow_runs":        {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubWorkflowRuns},
	"github.failed_workflow_logs": {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubFailedWorkflowLogs},
	"github.get_file":             {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubGetFile},
	"github.readme":               {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubReadme},
	"github.diff":                 {func(p ChatPolicy) bool { return p.AllowGitHubRead }, (*Dispatcher).githubDiff},
	"memory.similar_cases":        {func(p ChatPolicy) bool { return p.AllowMemoryRead }, (*Dispatcher).memorySimilarCases},
	"memory.skills":               {func(p ChatPolicy) bool { return p.AllowMemoryRead }, (*Dispatcher).memorySkills},
	"actions.list":                {func(p ChatPolicy) bool { return true }, (*Dispatcher).actionsList},
	"actions.propose":             {func(p ChatPolicy) bool { return true }, (*Dispatcher).actionsPropose},
	"rerun.investigation":         {func(p ChatPolicy) bool { return p.AllowReportRerun }, (*Dispatcher).rerunInvestigation},
}

// scopedPrefixes mark tool families whose reach is bounded by the target's
// namespace and cluster allowlists.
var scopedPrefixes = []string{"k8s.", "logs.", "rerun.", "memory."}

// Dispatch runs preflight and the handler. It never panics out and always
// returns a ToolResult.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked", "tool", req.ToolName, "panic", r)
			result = fail("tool_internal_error")
		}
	}()

	spec, known := toolTable[req.ToolName]
	if !known {
		return fail("unknown_tool")
	}

	inv := &models.Investigation{}
	if len(req.AnalysisJSON) > 0 {
		if err := json.Unmarshal(req.AnalysisJSON, inv); err != nil {
			d.logger.Warn("Unparseable analysis payload for tool call", "tool", req.ToolName, "error", err)
		}
	}

	if code := d.checkScope(req, inv); code != "" {
		return fail(code)
	}
	if !spec.capability(req.Policy) {
		return fail("tool_not_allowed")
	}

	d.logger.Info("Tool call", "tool", req.ToolName, "case_id", req.CaseID, "run_id", req.RunID)
	return spec.handler(d, ctx, req, inv)
}

// checkScope enforces the namespace and cluster allowlists for scoped tool
// families, based on the target recorded in the analysis payload.
func (d *Dispatcher) checkScope(req Request, inv *models.Investigation) string {
	scoped := false
	for _, prefix := range scopedPrefixes {
		if strings.HasPrefix(req.ToolName, prefix) {
			scoped = true
			break
		}
	}
	if !scoped {
		return ""
	}
	target := inv.Target
	if len(req.Policy.NamespaceAllowlist) > 0 {
		if target.Namespace == "" {
			return "namespace_required"
		}
		if !allowed(req.Policy.NamespaceAllowlist, target.Namespace) {
			return "namespace_not_allowed:" + target.Namespace
		}
	}
	if len(req.Policy.ClusterAllowlist) > 0 && target.Cluster != "" &&
		!allowed(req.Policy.ClusterAllowlist, target.Cluster) {
		return "cluster_not_allowed:" + target.Cluster
	}
	return ""
}
