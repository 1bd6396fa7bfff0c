package collectors

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sleuthops/sleuth/pkg/kube"
	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/scm"
)

// podAnnotationPatterns extract a pod name from alert annotation text, tried
// in order. Capture group 1 is the candidate name.
var podAnnotationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`pod:\s*([a-z0-9.-]+)`),
	regexp.MustCompile(`Pod\s+([a-z0-9.-]+)`),
	regexp.MustCompile("Kubernetes pod `([a-z0-9.-]+)`"),
}

// Resolution is what target resolution hands the logs collector: either the
// exact pod name, or a regex when only the workload shape is known.
type Resolution struct {
	PodPattern string
	PodIsRegex bool
}

// ResolveTarget runs before the collector fan-out, sequentially, because it
// may flip the investigation into historical mode and re-anchor the window.
// Job alerts resolve their pod here via the job-name label selector; pods
// the API no longer knows trigger the historical fallback.
func ResolveTarget(ctx context.Context, deps *Deps, inv *models.Investigation) Resolution {
	target := &inv.Target
	res := Resolution{PodPattern: target.Pod}

	if deps.Kube == nil {
		return res
	}

	// Job alerts carry no trustworthy pod label; enumerate the job's pods
	// and take the newest.
	if inv.Family == models.FamilyJobFailed && target.Pod == "" && target.WorkloadName != "" && target.Namespace != "" {
		pods, code := deps.Kube.ListPods(ctx, target.Namespace, "job-name="+target.WorkloadName)
		switch {
		case code != "":
			inv.AddError("k8s", code)
		case len(pods) > 0:
			target.Pod = pods[0].Name
			target.TargetType = models.TargetTypePod
			res.PodPattern = pods[0].Name
		}
	}

	if !target.IsPodScoped() {
		return res
	}

	_, _, code := deps.Kube.GetPodInfo(ctx, target.Namespace, target.Pod)
	if code == "" {
		return res
	}
	if !kube.IsNotFound(code) {
		inv.AddError("k8s", code)
		return res
	}

	// Pod is gone (TTL'd Job pods mostly). Switch to historical evidence.
	inv.HistoricalMode = true
	if !inv.Alert.StartsAt.IsZero() && !inv.Window.End.Equal(inv.Alert.StartsAt) {
		if window, err := models.AnchorWindow(inv.Window.Expression, inv.Alert.StartsAt, inv.Window.End); err == nil {
			inv.Window = window
		}
	}

	if name := podNameFromAnnotations(inv.Alert.Annotations); name != "" {
		target.Pod = name
		res.PodPattern = name
		return res
	}

	// No exact name recoverable: query logs by the workload-shaped prefix.
	stripped := scm.CleanWorkloadName(target.Pod)
	res.PodPattern = "^" + regexp.QuoteMeta(stripped) + "-.*"
	res.PodIsRegex = true
	return res
}

// podNameFromAnnotations scans annotation values with the ordered patterns.
// Only names longer than three characters and containing a hyphen are
// accepted; anything shorter is likelier to be prose than a pod name.
func podNameFromAnnotations(annotations map[string]string) string {
	keys := make([]string, 0, len(annotations))
	for k := range annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, pattern := range podAnnotationPatterns {
		for _, key := range keys {
			m := pattern.FindStringSubmatch(annotations[key])
			if m == nil {
				continue
			}
			name := m[1]
			if len(name) > 3 && strings.Contains(name, "-") {
				return name
			}
		}
	}
	return ""
}
