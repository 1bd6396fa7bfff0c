package tools

import (
	"context"
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/scm"
)

// resolveRepo returns the effective repository: a valid explicit arg, the
// repo already on the evidence, or a fresh discovery run. Malformed args
// get one retry with the name part cleaned of Kubernetes suffixes.
func (d *Dispatcher) resolveRepo(ctx context.Context, req Request, inv *models.Investigation) (string, string) {
	repo := req.Args.String("repo")
	if repo != "" && !scm.ValidRepo(repo) {
		repo = cleanRepoName(repo)
	}
	if repo == "" || !scm.ValidRepo(repo) {
		if gh := inv.Evidence.GitHub; gh != nil && scm.ValidRepo(gh.Repo) {
			repo = gh.Repo
		}
	}
	if repo == "" && d.deps.Discoverer != nil {
		workload := inv.Target.WorkloadName
		if workload == "" {
			workload = inv.Target.Pod
		}
		result := d.deps.Discoverer.Discover(ctx, scm.DiscoveryInput{
			WorkloadName: workload,
			AlertLabels:  inv.Alert.Labels,
		})
		repo = result.Repo
	}
	if !scm.ValidRepo(repo) {
		return "", "repo_not_discovered"
	}
	if !allowed(req.Policy.GitHubRepoAllowlist, repo) {
		return "", "repo_not_allowed:" + repo
	}
	return repo, ""
}

// cleanRepoName strips a Kubernetes-generated suffix from the name part of
// an org/name reference ("myorg/checkout-7f8d9c" → "myorg/checkout").
func cleanRepoName(repo string) string {
	org, name, found := strings.Cut(repo, "/")
	if !found {
		return repo
	}
	return org + "/" + scm.CleanWorkloadName(name)
}

func (d *Dispatcher) githubRecentCommits(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	commits, err := d.deps.SCM.RecentCommits(ctx, repo, req.Args.Int("limit", 10))
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "commits": commits})
}

func (d *Dispatcher) githubWorkflowRuns(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	runs, err := d.deps.SCM.WorkflowRuns(ctx, repo, req.Args.Int("limit", 10))
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "runs": runs})
}

func (d *Dispatcher) githubFailedWorkflowLogs(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	runID := req.Args.Int64("run_id", 0)
	if runID == 0 {
		return fail("missing_required_args:run_id")
	}
	summaries, err := d.deps.SCM.FailedJobSummaries(ctx, repo, runID)
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "run_id": runID, "failures": summaries})
}

func (d *Dispatcher) githubGetFile(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	if code := req.Args.requireStrings("path"); code != "" {
		return fail(code)
	}
	content, err := d.deps.SCM.GetFile(ctx, repo, req.Args.String("path"))
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "path": req.Args.String("path"), "content": content})
}

func (d *Dispatcher) githubReadme(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	readme, err := d.deps.SCM.GetReadme(ctx, repo)
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "readme": readme})
}

func (d *Dispatcher) githubDiff(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.SCM == nil {
		return fail("github_error:not_configured")
	}
	repo, code := d.resolveRepo(ctx, req, inv)
	if code != "" {
		return fail(code)
	}
	if code := req.Args.requireStrings("base", "head"); code != "" {
		return fail(code)
	}
	files, err := d.deps.SCM.CompareDiff(ctx, repo, req.Args.String("base"), req.Args.String("head"))
	if err != nil {
		return fail(scm.ClassifyError(err))
	}
	return ok(map[string]any{"repo": repo, "files": files})
}
