package logsclient

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sleuthops/sleuth/pkg/config"
	"github.com/sleuthops/sleuth/pkg/models"
)

// defaultLocalVictoriaLogsURL is tried when no URL is configured and the
// process runs outside a cluster (developer laptops with a port-forward).
const defaultLocalVictoriaLogsURL = "http://localhost:9428"

// FetchParams describes one recent-logs request.
type FetchParams struct {
	Pod       string
	Namespace string
	Container string
	Window    models.TimeWindow
	Limit     int
	// PodIsRegex switches the pod matcher to regex mode (historical
	// fallback queries pods by name prefix).
	PodIsRegex bool
}

// Client fetches recent log entries from Loki or VictoriaLogs, translating
// to the backend's query dialect and normalizing the response shape.
type Client struct {
	baseURL    string
	backend    models.LogsBackend
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a logs client from settings.
//
// Backend detection: explicit LOGS_BACKEND override wins; otherwise a URL
// containing "loki" selects loki and anything else selects victorialogs.
// With no URL configured, a process-local VictoriaLogs default is used
// outside a cluster; in-cluster the client reports not_configured.
func NewClient(settings *config.Settings) *Client {
	url := settings.LogsURL
	if url == "" && !settings.InCluster {
		url = defaultLocalVictoriaLogsURL
	}

	var backend models.LogsBackend
	switch settings.LogsBackend {
	case "loki":
		backend = models.BackendLoki
	case "victorialogs":
		backend = models.BackendVictoriaLogs
	default:
		if url == "" {
			backend = models.BackendNone
		} else if strings.Contains(url, "loki") {
			backend = models.BackendLoki
		} else {
			backend = models.BackendVictoriaLogs
		}
	}
	if url == "" {
		backend = models.BackendNone
	}

	return &Client{
		baseURL:    strings.TrimRight(url, "/"),
		backend:    backend,
		httpClient: &http.Client{Timeout: settings.LogsTimeout},
		logger:     slog.Default(),
	}
}

// Backend returns the detected backend identity.
func (c *Client) Backend() models.LogsBackend { return c.backend }

// labelSet is one attempt of the fallback ladder.
type labelSet struct {
	namespaceKey string
	podKey       string
	lokiOnly     bool
}

// fallbackLadder lists the label sets tried in order until a non-empty
// result is obtained. Different scrape configs emit different label names
// for the same pod, so empty results retry under the next naming scheme.
var fallbackLadder = []labelSet{
	{namespaceKey: "namespace", podKey: "pod"},
	{namespaceKey: "k8s_namespace", podKey: "k8s_pod"},
	{namespaceKey: "namespace", podKey: "pod_name", lokiOnly: true},
}

// FetchRecent returns the newest params.Limit entries matching the target,
// ascending by timestamp. It never returns a Go error: all failure detail
// lands in the returned evidence record (status, reason, backend).
func (c *Client) FetchRecent(ctx context.Context, params FetchParams) *models.LogsEvidence {
	if c.backend == models.BackendNone {
		return &models.LogsEvidence{
			Status: models.StatusUnavailable,
			Reason: "not_configured",
		}
	}
	if params.Limit <= 0 {
		params.Limit = 100
	}

	var lastQuery string
	var lastReason string
	for _, set := range fallbackLadder {
		if set.lokiOnly && c.backend != models.BackendLoki {
			continue
		}

		// First with container (when given), then without: sidecar-less
		// pods often carry no container label at all.
		containers := []string{params.Container}
		if params.Container != "" {
			containers = append(containers, "")
		}
		for _, container := range containers {
			entries, query, err := c.query(ctx, params, set, container)
			lastQuery = query
			if err != nil {
				c.logger.Warn("Logs query failed",
					"backend", c.backend, "query", query, "error", err)
				return &models.LogsEvidence{
					Status:    models.StatusUnavailable,
					Reason:    classifyTransportError(err),
					Backend:   c.backend,
					QueryUsed: query,
				}
			}
			if len(entries) > 0 {
				return &models.LogsEvidence{
					Entries:   entries,
					Status:    models.StatusOK,
					Backend:   c.backend,
					QueryUsed: query,
				}
			}
			lastReason = "no_entries_in_window"
			if container == "" {
				break
			}
		}
	}

	return &models.LogsEvidence{
		Status:    models.StatusEmpty,
		Reason:    lastReason,
		Backend:   c.backend,
		QueryUsed: lastQuery,
	}
}

// query dispatches to the backend dialect and tails the newest N entries.
func (c *Client) query(ctx context.Context, params FetchParams, set labelSet, container string) ([]models.LogEntry, string, error) {
	switch c.backend {
	case models.BackendLoki:
		return c.queryLoki(ctx, params, set, container)
	default:
		return c.queryVictoriaLogs(ctx, params, set, container)
	}
}

func classifyTransportError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "Client.Timeout"):
		return "timeout"
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return "connection_error"
	case strings.Contains(msg, "HTTP "):
		return "http_error"
	default:
		return "unexpected_error"
	}
}

// windowBounds clamps a zero window to the last hour so a missing window
// still produces a valid query.
func windowBounds(w models.TimeWindow) (time.Time, time.Time) {
	if w.Start.IsZero() || w.End.IsZero() {
		end := time.Now().UTC()
		return end.Add(-time.Hour), end
	}
	return w.Start, w.End
}
