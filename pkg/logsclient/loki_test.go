package logsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleuthops/sleuth/pkg/models"
)

func lokiResponse(stream map[string]string, values [][2]string) string {
	payload := map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "streams",
			"result": []map[string]any{
				{"stream": stream, "values": values},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func emptyLokiResponse() string {
	return `{"status":"success","data":{"resultType":"streams","result":[]}}`
}

func TestBuildLokiSelector(t *testing.T) {
	selector := buildLokiSelector([]labelMatcher{
		{key: "namespace", value: "prod"},
		{key: "pod", value: "^checkout-.*", regex: true},
	})
	assert.Equal(t, `{namespace="prod", pod=~"^checkout-.*"}`, selector)
}

func TestQueryLokiFallbackToK8sLabels(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var queries []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/loki/api/v1/query_range", r.URL.Path)
		query := r.URL.Query().Get("query")
		queries = append(queries, query)
		assert.Equal(t, "backward", r.URL.Query().Get("direction"))

		// The standard label set returns nothing; only the k8s_ variant hits.
		if strings.Contains(query, `k8s_namespace="prod"`) {
			fmt.Fprint(w, lokiResponse(
				map[string]string{"k8s_namespace": "prod", "k8s_pod": "checkout-abc"},
				[][2]string{
					{fmt.Sprint(ts.UnixNano()), "newest line"},
					{fmt.Sprint(ts.Add(-time.Minute).UnixNano()), "older line"},
				},
			))
			return
		}
		fmt.Fprint(w, emptyLokiResponse())
	}))
	defer server.Close()

	c := NewClient(testSettings(server.URL, "loki"))
	evidence := c.FetchRecent(context.Background(), FetchParams{
		Pod:       "checkout-abc",
		Namespace: "prod",
		Window:    models.TimeWindow{Start: ts.Add(-time.Hour), End: ts},
		Limit:     10,
	})

	require.Equal(t, models.StatusOK, evidence.Status)
	require.Len(t, evidence.Entries, 2)
	// Ascending by timestamp.
	assert.Equal(t, "older line", evidence.Entries[0].Message)
	assert.Equal(t, "newest line", evidence.Entries[1].Message)
	// Labels normalized onto canonical keys.
	assert.Equal(t, "checkout-abc", evidence.Entries[0].Labels["pod"])
	assert.Equal(t, "prod", evidence.Entries[0].Labels["namespace"])
	assert.Contains(t, evidence.QueryUsed, "k8s_namespace")
	// The standard set was tried first.
	assert.Contains(t, queries[0], `namespace="prod"`)
}

func TestQueryLokiEmptyAcrossLadder(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, emptyLokiResponse())
	}))
	defer server.Close()

	c := NewClient(testSettings(server.URL, "loki"))
	evidence := c.FetchRecent(context.Background(), FetchParams{
		Pod: "p", Namespace: "n", Limit: 5,
	})

	assert.Equal(t, models.StatusEmpty, evidence.Status)
	assert.Equal(t, "no_entries_in_window", evidence.Reason)
	// All three loki label sets were attempted.
	assert.Equal(t, 3, calls)
}

func TestQueryLokiOrdersTimestampsNumerically(t *testing.T) {
	// Nanosecond stamps of different digit widths sort wrongly as strings:
	// "999999999" > "1000000000" lexicographically but is the earlier instant.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, lokiResponse(
			map[string]string{"namespace": "n", "pod": "p"},
			[][2]string{
				{"1000000000", "later line"},
				{"999999999", "earlier line"},
				{"not-a-timestamp", "dropped line"},
			},
		))
	}))
	defer server.Close()

	c := NewClient(testSettings(server.URL, "loki"))
	evidence := c.FetchRecent(context.Background(), FetchParams{
		Pod: "p", Namespace: "n", Limit: 10,
	})

	require.Equal(t, models.StatusOK, evidence.Status)
	require.Len(t, evidence.Entries, 2)
	assert.Equal(t, "earlier line", evidence.Entries[0].Message)
	assert.Equal(t, "later line", evidence.Entries[1].Message)
	assert.True(t, evidence.Entries[0].Timestamp.Before(evidence.Entries[1].Timestamp))
}

func TestQueryLokiRespectsLimit(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	values := make([][2]string, 20)
	for i := range values {
		values[i] = [2]string{
			fmt.Sprint(ts.Add(time.Duration(i) * time.Second).UnixNano()),
			fmt.Sprintf("line-%d", i),
		}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, lokiResponse(map[string]string{"namespace": "n", "pod": "p"}, values))
	}))
	defer server.Close()

	c := NewClient(testSettings(server.URL, "loki"))
	evidence := c.FetchRecent(context.Background(), FetchParams{
		Pod: "p", Namespace: "n", Limit: 3,
	})

	require.Equal(t, models.StatusOK, evidence.Status)
	require.Len(t, evidence.Entries, 3)
	assert.Equal(t, "line-19", evidence.Entries[2].Message)
	assert.Equal(t, "line-17", evidence.Entries[0].Message)
}
