package promql

import (
	"context"
	"errors"
	"testing"
	"time"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleuthops/sleuth/pkg/models"
)

// stubAPI returns canned values for Query and QueryRange.
type stubAPI struct {
	queryValue model.Value
	queryErr   error
	rangeValue model.Value
	rangeErr   error
	lastRange  promv1.Range
	lastQuery  string
}

func (s *stubAPI) Query(_ context.Context, query string, _ time.Time, _ ...promv1.Option) (model.Value, promv1.Warnings, error) {
	s.lastQuery = query
	return s.queryValue, nil, s.queryErr
}

func (s *stubAPI) QueryRange(_ context.Context, query string, r promv1.Range, _ ...promv1.Option) (model.Value, promv1.Warnings, error) {
	s.lastQuery = query
	s.lastRange = r
	return s.rangeValue, nil, s.rangeErr
}

func TestInstantVector(t *testing.T) {
	ts := model.TimeFromUnix(1748779200)
	stub := &stubAPI{
		queryValue: model.Vector{
			&model.Sample{
				Metric:    model.Metric{"container": "app"},
				Value:     0.42,
				Timestamp: ts,
			},
		},
	}
	p := NewProvider(stub)

	samples, code := p.Instant(context.Background(), "up", time.Time{})
	require.Empty(t, code)
	require.Len(t, samples, 1)
	assert.InDelta(t, 0.42, samples[0].Value, 1e-9)
	assert.Equal(t, "app", samples[0].Labels["container"])
}

func TestInstantScalar(t *testing.T) {
	stub := &stubAPI{
		queryValue: &model.Scalar{Value: 7, Timestamp: model.TimeFromUnix(1748779200)},
	}
	samples, code := NewProvider(stub).Instant(context.Background(), "scalar(1)", time.Time{})
	require.Empty(t, code)
	require.Len(t, samples, 1)
	assert.InDelta(t, 7, samples[0].Value, 1e-9)
}

func TestInstantUnexpectedType(t *testing.T) {
	stub := &stubAPI{queryValue: model.Matrix{}}
	_, code := NewProvider(stub).Instant(context.Background(), "x", time.Time{})
	assert.Equal(t, "promql_error:unexpected_result_type", code)
}

func TestRangeMatrix(t *testing.T) {
	stub := &stubAPI{
		rangeValue: model.Matrix{
			&model.SampleStream{
				Metric: model.Metric{"container": "app"},
				Values: []model.SamplePair{
					{Timestamp: model.TimeFromUnix(1748779200), Value: 1},
					{Timestamp: model.TimeFromUnix(1748779260), Value: 2},
				},
			},
		},
	}
	p := NewProvider(stub)
	window := models.TimeWindow{
		Start: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	series, code := p.Range(context.Background(), "rate(x[5m])", window)
	require.Empty(t, code)
	require.Len(t, series, 1)
	require.Len(t, series[0].Samples, 2)
	assert.InDelta(t, 2, series[0].Samples[1].Value, 1e-9)

	// 60 points over 1h: one-minute step.
	assert.Equal(t, time.Minute, stub.lastRange.Step)
}

func TestRangeStepFloor(t *testing.T) {
	stub := &stubAPI{rangeValue: model.Matrix{}}
	p := NewProvider(stub)
	window := models.TimeWindow{
		Start: time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	_, code := p.Range(context.Background(), "x", window)
	require.Empty(t, code)
	assert.Equal(t, 15*time.Second, stub.lastRange.Step)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&promv1.Error{Type: promv1.ErrBadData}, "promql_error:bad_data"},
		{&promv1.Error{Type: promv1.ErrTimeout}, "promql_error:timeout"},
		{&promv1.Error{Type: promv1.ErrServer}, "promql_error:server"},
		{errors.New("dial tcp: connection refused"), "promql_error:transport"},
	}
	for _, tt := range tests {
		stub := &stubAPI{queryErr: tt.err}
		_, code := NewProvider(stub).Instant(context.Background(), "x", time.Time{})
		assert.Equal(t, tt.want, code)
	}
}

func TestQueryBuilders(t *testing.T) {
	assert.Equal(t,
		`rate(kube_pod_container_status_restarts_total{namespace="prod", pod="checkout-abc"}[5m])`,
		RestartsQuery("prod", "checkout-abc"))

	assert.Contains(t, CPUThrottlingQuery("prod", "p"), "container_cpu_cfs_throttled_periods_total")
	assert.Contains(t, MemoryLimitsQuery("prod", "p"), `resource="memory"`)
	assert.Contains(t, PodPhaseQuery("prod", "p"), "kube_pod_status_phase")

	query := HTTP5xxQuery(map[string]string{"service": "checkout", "job": "api"})
	assert.Contains(t, query, `service="checkout"`)
	assert.Contains(t, query, `job="api"`)
	assert.Contains(t, query, `code=~"5.."`)
}
