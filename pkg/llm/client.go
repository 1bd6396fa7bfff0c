// Package llm provides a provider-agnostic LLM client with two call shapes:
// a synchronous JSON-structured call used by the investigation pipeline, and
// a streaming call used by chat. Providers are selected by name; errors are
// reported as compact code strings rather than Go errors so callers can
// branch on stable prefixes.
package llm

import "context"

// StreamChunk is one unit of streamed output. Thinking chunks carry the
// provider's reasoning trace and are emitted immediately; content chunks are
// batched. Metadata appears only on terminal chunks (cancellation, errors,
// usage).
type StreamChunk struct {
	Content  string         `json:"content,omitempty"`
	Thinking bool           `json:"thinking,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client is the LLM surface used by the pipeline and the chat runtime.
type Client interface {
	// GenerateJSON sends one prompt and returns the parsed JSON object the
	// model produced. When schema is non-nil the provider is asked for
	// schema-constrained output and thinking is disabled. A non-empty
	// second return is an error code; the object is nil in that case.
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any, enableThinking bool) (map[string]any, string)

	// GenerateStream streams the response as batched chunks. The returned
	// channel is closed when the stream ends, is cancelled, or fails; see
	// the chunk metadata for the terminal condition. The call itself never
	// returns an error after the channel is handed out.
	GenerateStream(ctx context.Context, prompt string, enableThinking bool) <-chan StreamChunk
}
