package tools

import (
	"context"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

const defaultMaxPromQLSeries = 20

func (d *Dispatcher) promqlInstant(ctx context.Context, req Request, _ *models.Investigation) ToolResult {
	if d.deps.Metrics == nil {
		return fail("promql_error:not_configured")
	}
	if code := req.Args.requireStrings("query"); code != "" {
		return fail(code)
	}
	query := req.Args.String("query")
	at, found := req.Args.Time("at")
	if !found {
		at = time.Now().UTC()
	}

	samples, code := d.deps.Metrics.Instant(ctx, query, at)
	if code != "" {
		return fail(code)
	}
	maxSeries := req.Policy.MaxPromQLSeries
	if maxSeries <= 0 {
		maxSeries = defaultMaxPromQLSeries
	}
	if len(samples) > maxSeries {
		samples = samples[:maxSeries]
	}
	return ok(map[string]any{
		"at":     at,
		"query":  query,
		"result": samples,
	})
}
