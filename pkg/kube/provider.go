package kube

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Provider is the read-only Kubernetes facade used by collectors and tools.
// All operations translate transport failures into compact error strings of
// the form k8s_error:<Kind>[:<msg>].
type Provider struct {
	client kubernetes.Interface
	logger *slog.Logger
}

// NewProvider wraps an existing clientset (tests pass the fake clientset).
func NewProvider(client kubernetes.Interface) *Provider {
	return &Provider{client: client, logger: slog.Default()}
}

// NewProviderFromEnv builds a provider from in-cluster config, falling back
// to the default kubeconfig loading rules.
func NewProviderFromEnv() (*Provider, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, nil).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("load kubernetes config: %w", err)
		}
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}
	return NewProvider(client), nil
}

// IsNotFound reports whether a compact error string came from a 404.
func IsNotFound(code string) bool {
	return strings.HasPrefix(code, "k8s_error:not_found")
}

// classify maps a client-go error to the compact taxonomy.
func classify(err error) string {
	switch {
	case apierrors.IsNotFound(err):
		return "k8s_error:not_found"
	case apierrors.IsForbidden(err):
		return "k8s_error:forbidden"
	case apierrors.IsUnauthorized(err):
		return "k8s_error:unauthorized"
	case apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err):
		return "k8s_error:timeout"
	default:
		return fmt.Sprintf("k8s_error:api:%s", truncate(err.Error(), 120))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// GetPodInfo fetches one pod and adapts it to the evidence model.
// The second return is the compact error code ("" on success).
func (p *Provider) GetPodInfo(ctx context.Context, namespace, pod string) (*models.PodInfo, []models.PodCondition, string) {
	obj, err := p.client.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, nil, classify(err)
	}
	info, conditions := adaptPod(obj)
	return info, conditions, ""
}

// ListPods lists pods in a namespace by label selector, adapted and sorted
// newest-first by creation time.
func (p *Provider) ListPods(ctx context.Context, namespace, labelSelector string) ([]*models.PodInfo, string) {
	list, err := p.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, classify(err)
	}
	items := make([]corev1.Pod, len(list.Items))
	copy(items, list.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreationTimestamp.After(items[j].CreationTimestamp.Time)
	})
	out := make([]*models.PodInfo, 0, len(items))
	for i := range items {
		info, _ := adaptPod(&items[i])
		out = append(out, info)
	}
	return out, ""
}

// ListEvents returns events for one object (or the whole namespace when
// name is empty), newest-last, capped at limit.
func (p *Provider) ListEvents(ctx context.Context, namespace, kind, name string, limit int) ([]models.K8sEvent, string) {
	opts := metav1.ListOptions{}
	var selectors []string
	if name != "" {
		selectors = append(selectors, "involvedObject.name="+name)
	}
	if kind != "" {
		selectors = append(selectors, "involvedObject.kind="+kind)
	}
	if len(selectors) > 0 {
		opts.FieldSelector = strings.Join(selectors, ",")
	}
	list, err := p.client.CoreV1().Events(namespace).List(ctx, opts)
	if err != nil {
		return nil, classify(err)
	}
	events := adaptEvents(list.Items)
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, ""
}

// maxOwnerChainDepth bounds the ownership walk; real chains are two links
// (ReplicaSet→Deployment, Job→CronJob), so anything deeper is a cyclic or
// malformed ownerRef graph.
const maxOwnerChainDepth = 5

// GetOwnerChain walks ownership from the pod up to the topmost workload
// (pod → ReplicaSet → Deployment, pod → Job → CronJob, and so on).
func (p *Provider) GetOwnerChain(ctx context.Context, namespace, pod string) ([]models.OwnerRef, string) {
	obj, err := p.client.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}

	var chain []models.OwnerRef
	owners := obj.OwnerReferences
	for len(owners) > 0 && len(chain) < maxOwnerChainDepth {
		ref := owners[0]
		link := models.OwnerRef{Kind: ref.Kind, Name: ref.Name}
		owners = nil

		switch ref.Kind {
		case "ReplicaSet":
			rs, err := p.client.AppsV1().ReplicaSets(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = rs.Labels
				owners = rs.OwnerReferences
			}
		case "Deployment":
			d, err := p.client.AppsV1().Deployments(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = d.Labels
			}
		case "StatefulSet":
			ss, err := p.client.AppsV1().StatefulSets(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = ss.Labels
			}
		case "DaemonSet":
			ds, err := p.client.AppsV1().DaemonSets(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = ds.Labels
			}
		case "Job":
			job, err := p.client.BatchV1().Jobs(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = job.Labels
				owners = job.OwnerReferences
			}
		case "CronJob":
			cj, err := p.client.BatchV1().CronJobs(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
			if err == nil {
				link.Labels = cj.Labels
			}
		}
		chain = append(chain, link)
	}
	return chain, ""
}

// GetRolloutStatus summarizes the rollout health of one workload.
func (p *Provider) GetRolloutStatus(ctx context.Context, namespace, kind, name string) (*models.RolloutStatus, string) {
	switch kind {
	case "Deployment":
		d, err := p.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return adaptDeploymentRollout(d), ""
	case "StatefulSet":
		ss, err := p.client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return adaptStatefulSetRollout(ss), ""
	case "DaemonSet":
		ds, err := p.client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return adaptDaemonSetRollout(ds), ""
	default:
		return nil, "k8s_error:unsupported_kind:" + kind
	}
}

// GetWorkloadAnnotations returns the annotations of one workload object.
func (p *Provider) GetWorkloadAnnotations(ctx context.Context, namespace, kind, name string) (map[string]string, string) {
	switch kind {
	case "Deployment":
		d, err := p.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return d.Annotations, ""
	case "StatefulSet":
		ss, err := p.client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return ss.Annotations, ""
	case "DaemonSet":
		ds, err := p.client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return ds.Annotations, ""
	case "CronJob":
		cj, err := p.client.BatchV1().CronJobs(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return cj.Annotations, ""
	case "Job":
		job, err := p.client.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, classify(err)
		}
		return job.Annotations, ""
	default:
		return nil, "k8s_error:unsupported_kind:" + kind
	}
}

// GetPreviousContainerLogs reads the terminated container's log stream
// (the "previous" flag on the pod log endpoint), bounded to tailLines.
func (p *Provider) GetPreviousContainerLogs(ctx context.Context, namespace, pod, container string, tailLines int64) ([]models.LogEntry, string) {
	opts := &corev1.PodLogOptions{
		Previous:   true,
		Timestamps: true,
	}
	if container != "" {
		opts.Container = container
	}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}
	req := p.client.CoreV1().Pods(namespace).GetLogs(pod, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer stream.Close()
	return parseTimestampedLogs(stream), ""
}
