package logsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

// lokiQueryRangeResponse mirrors the standard Loki query_range shape.
type lokiQueryRangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"` // [ts_ns, message]
		} `json:"result"`
	} `json:"data"`
}

// buildLokiSelector renders a LogQL label selector, using =~ for regex-mode
// fields.
func buildLokiSelector(matchers []labelMatcher) string {
	parts := make([]string, 0, len(matchers))
	for _, m := range matchers {
		op := "="
		if m.regex {
			op = "=~"
		}
		parts = append(parts, fmt.Sprintf("%s%s%q", m.key, op, m.value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// labelMatcher is one label constraint in either dialect.
type labelMatcher struct {
	key   string
	value string
	regex bool
}

func buildMatchers(params FetchParams, set labelSet, container string) []labelMatcher {
	matchers := []labelMatcher{
		{key: set.namespaceKey, value: params.Namespace},
		{key: set.podKey, value: params.Pod, regex: params.PodIsRegex},
	}
	if container != "" {
		matchers = append(matchers, labelMatcher{key: "container", value: container})
	}
	return matchers
}

// queryLoki runs GET /loki/api/v1/query_range with nanosecond bounds and
// backward direction, returning the newest params.Limit entries ascending.
func (c *Client) queryLoki(ctx context.Context, params FetchParams, set labelSet, container string) ([]models.LogEntry, string, error) {
	selector := buildLokiSelector(buildMatchers(params, set, container))
	start, end := windowBounds(params.Window)

	q := url.Values{}
	q.Set("query", selector)
	q.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	q.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("direction", "backward")

	reqURL := c.baseURL + "/loki/api/v1/query_range?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, selector, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, selector, fmt.Errorf("query loki: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, selector, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed lokiQueryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, selector, fmt.Errorf("decode loki response: %w", err)
	}

	tail := NewTailBuffer(params.Limit)
	for _, result := range parsed.Data.Result {
		labels := normalizeLokiLabels(result.Stream)
		// Values arrive newest-first (direction=backward); feed them oldest
		// first so arrival order matches chronology for tie-breaking. The
		// timestamps must be compared as numbers, not strings.
		type tsValue struct {
			ns  int64
			msg string
		}
		values := make([]tsValue, 0, len(result.Values))
		for _, v := range result.Values {
			ns, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				continue
			}
			values = append(values, tsValue{ns: ns, msg: v[1]})
		}
		sort.SliceStable(values, func(i, j int) bool { return values[i].ns < values[j].ns })
		for _, v := range values {
			tail.Add(models.LogEntry{
				Timestamp: time.Unix(0, v.ns).UTC(),
				Message:   v.msg,
				Labels:    labels,
			})
		}
	}
	return tail.Entries(), selector, nil
}

// normalizeLokiLabels maps label variants onto the canonical keys:
// pod ← first of {pod, k8s_pod, pod_name}, namespace likewise.
func normalizeLokiLabels(stream map[string]string) map[string]string {
	if len(stream) == 0 {
		return nil
	}
	labels := make(map[string]string, len(stream))
	for k, v := range stream {
		labels[k] = v
	}
	for _, key := range []string{"pod", "k8s_pod", "pod_name"} {
		if v, ok := stream[key]; ok && v != "" {
			labels["pod"] = v
			break
		}
	}
	for _, key := range []string{"namespace", "k8s_namespace"} {
		if v, ok := stream[key]; ok && v != "" {
			labels["namespace"] = v
			break
		}
	}
	return labels
}
