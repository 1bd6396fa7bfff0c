package logsclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

// vlMessageKeys are tried in order when extracting the message field from an
// NDJSON line.
var vlMessageKeys = []string{"_msg", "message", "msg", "log", "text"}

// vlLabelWhitelist is the small set of labels carried over from NDJSON
// objects onto entries.
var vlLabelWhitelist = []string{
	"namespace", "k8s_namespace", "pod", "k8s_pod", "pod_name",
	"container", "node", "stream", "level", "job",
}

// escapeLogsQL escapes backslash and double-quote for a LogsQL string literal.
func escapeLogsQL(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

// buildLogsQL renders a LogsQL expression: k:"v" AND k:re("pattern") for
// regex-mode fields.
func buildLogsQL(matchers []labelMatcher) string {
	parts := make([]string, 0, len(matchers))
	for _, m := range matchers {
		if m.regex {
			parts = append(parts, fmt.Sprintf(`%s:re(%q)`, m.key, escapeLogsQL(m.value)))
		} else {
			parts = append(parts, fmt.Sprintf(`%s:"%s"`, m.key, escapeLogsQL(m.value)))
		}
	}
	return strings.Join(parts, " AND ")
}

// queryVictoriaLogs runs GET /select/logsql/query with RFC-3339 bounds and
// parses the NDJSON response, returning the newest params.Limit entries
// ascending.
func (c *Client) queryVictoriaLogs(ctx context.Context, params FetchParams, set labelSet, container string) ([]models.LogEntry, string, error) {
	expr := buildLogsQL(buildMatchers(params, set, container))
	start, end := windowBounds(params.Window)

	q := url.Values{}
	q.Set("query", expr)
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))

	reqURL := c.baseURL + "/select/logsql/query?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, expr, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, expr, fmt.Errorf("query victorialogs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, expr, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	entries, err := parseNDJSON(resp.Body, params.Limit)
	if err != nil {
		return nil, expr, err
	}
	return entries, expr, nil
}

// parseNDJSON reads one JSON object per line, extracting timestamp from
// _time (RFC-3339, nanosecond precision preserved) and the message from the
// first present of the known message keys. Unparseable lines are skipped.
func parseNDJSON(r io.Reader, limit int) ([]models.LogEntry, error) {
	tail := NewTailBuffer(limit)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		entry := models.LogEntry{}
		if raw, ok := obj["_time"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				entry.Timestamp = ts.UTC()
			}
		}
		for _, key := range vlMessageKeys {
			if v, ok := obj[key].(string); ok && v != "" {
				entry.Message = v
				break
			}
		}
		if entry.Message == "" {
			continue
		}
		for _, key := range vlLabelWhitelist {
			if v, ok := obj[key].(string); ok && v != "" {
				if entry.Labels == nil {
					entry.Labels = map[string]string{}
				}
				entry.Labels[key] = v
			}
		}
		tail.Add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ndjson: %w", err)
	}
	return tail.Entries(), nil
}
