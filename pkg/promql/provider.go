package promql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/sleuthops/sleuth/pkg/models"
)

// API is the subset of the Prometheus v1 API the provider uses. The real
// client satisfies it; tests substitute a stub.
type API interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...promv1.Option) (model.Value, promv1.Warnings, error)
	QueryRange(ctx context.Context, query string, r promv1.Range, opts ...promv1.Option) (model.Value, promv1.Warnings, error)
}

// Provider is the read-only metrics facade over a Prometheus-compatible API.
type Provider struct {
	api    API
	logger *slog.Logger
}

// NewProvider wraps an existing API implementation.
func NewProvider(a API) *Provider {
	return &Provider{api: a, logger: slog.Default()}
}

// NewProviderFromURL builds a provider against a Prometheus base URL.
func NewProviderFromURL(baseURL string) (*Provider, error) {
	client, err := api.NewClient(api.Config{Address: baseURL})
	if err != nil {
		return nil, fmt.Errorf("build prometheus client: %w", err)
	}
	return NewProvider(promv1.NewAPI(client)), nil
}

// InstantSample is one vector element of an instant query result.
type InstantSample struct {
	Labels    map[string]string `json:"labels,omitempty"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
}

// classify maps a query failure to the compact promql_error taxonomy.
func classify(err error) string {
	if apiErr, ok := err.(*promv1.Error); ok {
		switch apiErr.Type {
		case promv1.ErrBadData:
			return "promql_error:bad_data"
		case promv1.ErrTimeout:
			return "promql_error:timeout"
		case promv1.ErrCanceled:
			return "promql_error:canceled"
		case promv1.ErrExec:
			return "promql_error:exec"
		case promv1.ErrBadResponse:
			return "promql_error:bad_response"
		case promv1.ErrServer:
			return "promql_error:server"
		case promv1.ErrClient:
			return "promql_error:client"
		}
	}
	return "promql_error:transport"
}

// Instant runs an instant query at ts (now when zero).
func (p *Provider) Instant(ctx context.Context, query string, ts time.Time) ([]InstantSample, string) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	value, warnings, err := p.api.Query(ctx, query, ts)
	if err != nil {
		return nil, classify(err)
	}
	if len(warnings) > 0 {
		p.logger.Debug("PromQL query returned warnings", "query", query, "warnings", warnings)
	}

	vector, ok := value.(model.Vector)
	if !ok {
		if scalar, ok := value.(*model.Scalar); ok {
			return []InstantSample{{
				Value:     float64(scalar.Value),
				Timestamp: scalar.Timestamp.Time().UTC(),
			}}, ""
		}
		return nil, "promql_error:unexpected_result_type"
	}
	out := make([]InstantSample, 0, len(vector))
	for _, s := range vector {
		out = append(out, InstantSample{
			Labels:    adaptMetric(s.Metric),
			Value:     float64(s.Value),
			Timestamp: s.Timestamp.Time().UTC(),
		})
	}
	return out, ""
}

// Range runs a range query over the window and adapts the matrix to the
// evidence series model. Step is derived from the window (60 points max).
func (p *Provider) Range(ctx context.Context, query string, window models.TimeWindow) ([]models.TimeSeries, string) {
	step := window.Duration() / 60
	if step < 15*time.Second {
		step = 15 * time.Second
	}
	value, warnings, err := p.api.QueryRange(ctx, query, promv1.Range{
		Start: window.Start,
		End:   window.End,
		Step:  step,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(warnings) > 0 {
		p.logger.Debug("PromQL range query returned warnings", "query", query, "warnings", warnings)
	}

	matrix, ok := value.(model.Matrix)
	if !ok {
		return nil, "promql_error:unexpected_result_type"
	}
	out := make([]models.TimeSeries, 0, len(matrix))
	for _, stream := range matrix {
		series := models.TimeSeries{Labels: adaptMetric(stream.Metric)}
		for _, pair := range stream.Values {
			series.Samples = append(series.Samples, models.Sample{
				Timestamp: pair.Timestamp.Time().UTC(),
				Value:     float64(pair.Value),
			})
		}
		out = append(out, series)
	}
	return out, ""
}

func adaptMetric(m model.Metric) map[string]string {
	if len(m) == 0 {
		return nil
	}
	labels := make(map[string]string, len(m))
	for k, v := range m {
		labels[string(k)] = string(v)
	}
	return labels
}
