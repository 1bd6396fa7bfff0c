package tools

import (
	"context"

	"github.com/sleuthops/sleuth/pkg/models"
)

const defaultEventLimit = 20

// resolvePod returns the effective (pod, namespace) for a k8s-shaped tool:
// explicit args first, then the analysis target, with the Job pod
// resolution applied when the target's workload is a Job and no pod is
// known.
func (d *Dispatcher) resolvePod(ctx context.Context, req Request, inv *models.Investigation) (pod, namespace string) {
	pod = req.Args.String("pod")
	namespace = req.Args.String("namespace")
	if namespace == "" {
		namespace = inv.Target.Namespace
	}
	if pod == "" {
		pod = inv.Target.Pod
	}
	if pod == "" && inv.Target.WorkloadKind == "Job" && inv.Target.WorkloadName != "" &&
		namespace != "" && d.deps.Kube != nil {
		pods, code := d.deps.Kube.ListPods(ctx, namespace, "job-name="+inv.Target.WorkloadName)
		if code == "" && len(pods) > 0 {
			pod = pods[0].Name
		}
	}
	return pod, namespace
}

func (d *Dispatcher) k8sPodContext(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Kube == nil {
		return fail("k8s_error:not_configured")
	}
	pod, namespace := d.resolvePod(ctx, req, inv)
	if pod == "" || namespace == "" {
		return fail("missing_required_args:namespace,pod")
	}

	info, conditions, code := d.deps.Kube.GetPodInfo(ctx, namespace, pod)
	if code != "" {
		return fail(code)
	}
	events, code := d.deps.Kube.ListEvents(ctx, namespace, "Pod", pod, defaultEventLimit)
	if code != "" {
		// Pod info alone is still useful; report the event failure inline.
		return ok(map[string]any{"pod_info": info, "conditions": conditions, "events_error": code})
	}
	return ok(map[string]any{"pod_info": info, "conditions": conditions, "events": events})
}

func (d *Dispatcher) k8sRolloutStatus(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Kube == nil {
		return fail("k8s_error:not_configured")
	}
	namespace := req.Args.String("namespace")
	kind := req.Args.String("kind")
	name := req.Args.String("name")
	if namespace == "" {
		namespace = inv.Target.Namespace
	}
	if kind == "" {
		kind = inv.Target.WorkloadKind
	}
	if name == "" {
		name = inv.Target.WorkloadName
	}
	if namespace == "" || kind == "" || name == "" {
		return fail("missing_required_args:kind,name,namespace")
	}

	rollout, code := d.deps.Kube.GetRolloutStatus(ctx, namespace, kind, name)
	if code != "" {
		return fail(code)
	}
	return ok(rollout)
}

func (d *Dispatcher) k8sEvents(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Kube == nil {
		return fail("k8s_error:not_configured")
	}
	namespace := req.Args.String("namespace")
	if namespace == "" {
		namespace = inv.Target.Namespace
	}
	if namespace == "" {
		return fail("namespace_required")
	}

	resourceType := req.Args.String("resource_type")
	resourceName := req.Args.String("resource_name")
	if resourceName == "" {
		if inv.Target.Pod != "" {
			resourceType, resourceName = "Pod", inv.Target.Pod
		} else if inv.Target.WorkloadName != "" {
			resourceType, resourceName = inv.Target.WorkloadKind, inv.Target.WorkloadName
		}
	}
	limit := clamp(req.Args.Int("limit", defaultEventLimit), 5, 100)

	events, code := d.deps.Kube.ListEvents(ctx, namespace, resourceType, resourceName, limit)
	if code != "" {
		return fail(code)
	}
	return ok(map[string]any{
		"namespace":     namespace,
		"resource_type": resourceType,
		"resource_name": resourceName,
		"events":        events,
	})
}
