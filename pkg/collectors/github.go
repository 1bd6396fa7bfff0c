package collectors

import (
	"context"

	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/scm"
)

const (
	recentCommitLimit = 10
	workflowRunLimit  = 10
	repoDocsLimit     = 5
)

// CollectGitHub resolves the target's source repository and gathers recent
// change evidence: commits, CI runs with failure summaries, the README, and
// top-level docs. Third-party repos get the reduced read (no CI, no docs).
// Reads the K8s slot for workload annotations, so the pipeline runs it
// after the K8s collector joins.
func CollectGitHub(ctx context.Context, deps *Deps, inv *models.Investigation) {
	if deps.SCM == nil || deps.Discoverer == nil {
		return
	}

	workload := inv.Target.WorkloadName
	if workload == "" {
		workload = inv.Target.Pod
	}
	if workload == "" && inv.Target.Service == "" {
		return
	}
	if workload == "" {
		workload = inv.Target.Service
	}

	result := deps.Discoverer.Discover(ctx, scm.DiscoveryInput{
		WorkloadName:        workload,
		WorkloadAnnotations: workloadAnnotations(ctx, deps, inv),
		AlertLabels:         inv.Alert.Labels,
	})
	gh := &models.GitHubEvidence{
		Repo:            result.Repo,
		DiscoveryMethod: result.Method,
		IsThirdParty:    result.IsThirdParty,
	}
	inv.Evidence.GitHub = gh
	if result.Repo == "" {
		return
	}

	commits, err := deps.SCM.RecentCommits(ctx, result.Repo, recentCommitLimit)
	if err != nil {
		inv.AddError("github", scm.ClassifyError(err))
	} else {
		gh.RecentCommits = commits
	}

	if result.IsThirdParty {
		return
	}

	runs, err := deps.SCM.WorkflowRuns(ctx, result.Repo, workflowRunLimit)
	if err != nil {
		inv.AddError("github", scm.ClassifyError(err))
	} else {
		gh.WorkflowRuns = runs
		for _, run := range runs {
			if run.Conclusion != "failure" {
				continue
			}
			summaries, err := deps.SCM.FailedJobSummaries(ctx, result.Repo, run.ID)
			if err != nil {
				inv.AddError("github", scm.ClassifyError(err))
				break
			}
			gh.FailedWorkflowLogs = append(gh.FailedWorkflowLogs, summaries...)
			break
		}
	}

	readme, err := deps.SCM.GetReadme(ctx, result.Repo)
	if err == nil {
		gh.Readme = readme
	}
	docs, err := deps.SCM.ListDocs(ctx, result.Repo, repoDocsLimit)
	if err == nil {
		gh.Docs = docs
	}
}

// workloadAnnotations fetches the owning workload's annotations for the
// discovery chain's first step. Best-effort: a miss just skips the step.
func workloadAnnotations(ctx context.Context, deps *Deps, inv *models.Investigation) map[string]string {
	if deps.Kube == nil {
		return nil
	}
	target := inv.Target
	if target.Namespace == "" || target.WorkloadKind == "" || target.WorkloadName == "" {
		return nil
	}
	annotations, code := deps.Kube.GetWorkloadAnnotations(ctx, target.Namespace, target.WorkloadKind, target.WorkloadName)
	if code != "" {
		return nil
	}
	return annotations
}
