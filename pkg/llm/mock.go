package llm

import "context"

// MockClient short-circuits every call with a stable stub. Used when
// LLM_MOCK is set, so the rest of the pipeline can be exercised without
// credentials or network.
type MockClient struct{}

// NewMockClient returns the stub client.
func NewMockClient() *MockClient { return &MockClient{} }

// GenerateJSON implements Client with a fixed object.
func (m *MockClient) GenerateJSON(context.Context, string, map[string]any, bool) (map[string]any, string) {
	return map[string]any{
		"summary":          "Mock LLM response: no model was consulted.",
		"probable_cause":   "mock",
		"suggested_checks": []any{"re-run with a configured LLM provider"},
	}, ""
}

// GenerateStream implements Client with a short canned stream.
func (m *MockClient) GenerateStream(ctx context.Context, _ string, _ bool) <-chan StreamChunk {
	out := make(chan StreamChunk, 2)
	out <- StreamChunk{Content: "Mock LLM response: no model was consulted."}
	out <- StreamChunk{Metadata: map[string]any{"mock": true}}
	close(out)
	return out
}
