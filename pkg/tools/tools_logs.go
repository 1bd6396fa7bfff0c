package tools

import (
	"context"
	"time"

	"github.com/sleuthops/sleuth/pkg/logsclient"
	"github.com/sleuthops/sleuth/pkg/models"
)

const defaultLogTailLimit = 100

func (d *Dispatcher) logsTail(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Logs == nil {
		return fail("logs_error:not_configured")
	}
	pod, namespace := d.resolvePod(ctx, req, inv)
	if pod == "" || namespace == "" {
		return fail("missing_required_args:namespace,pod")
	}

	maxLines := req.Policy.MaxLogLines
	if maxLines <= 0 {
		maxLines = defaultLogTailLimit
	}
	limit := clamp(req.Args.Int("limit", maxLines), 1, maxLines)

	window := inv.Window
	if start, found := req.Args.Time("start"); found {
		window.Start = start
	}
	if end, found := req.Args.Time("end"); found {
		window.End = end
	}
	if window.Start.IsZero() && window.End.IsZero() {
		now := time.Now().UTC()
		window = models.TimeWindow{Start: now.Add(-time.Hour), End: now}
	}

	evidence := d.deps.Logs.FetchRecent(ctx, logsclient.FetchParams{
		Pod:       pod,
		Namespace: namespace,
		Container: req.Args.String("container"),
		Window:    window,
		Limit:     limit,
	})
	if evidence.Status == models.StatusUnavailable {
		return fail("logs_error:" + evidence.Reason)
	}

	entries := evidence.Entries
	if req.Policy.RedactSecrets {
		if d.masker == nil {
			// Redaction demanded but unavailable: fail closed rather than
			// leak credentials into chat.
			return fail("redaction_unavailable")
		}
		entries = d.masker.RedactEntries(entries)
	}
	return ok(map[string]any{
		"backend":    evidence.Backend,
		"query_used": evidence.QueryUsed,
		"status":     evidence.Status,
		"entries":    entries,
	})
}
