package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	thinkingBudgetTokens    = 1024
)

// AnthropicClient talks to the Anthropic Messages API over plain HTTP.
// Schema-constrained output is requested via a forced tool call whose input
// schema is the caller's schema.
type AnthropicClient struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewAnthropicClient builds a client from the shared config record.
func NewAnthropicClient(apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		baseURL:     defaultAnthropicBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      slog.Default(),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
	Thinking    *anthropicThinking   `json:"thinking,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

func (c *AnthropicClient) buildRequest(prompt string, schema map[string]any, enableThinking, stream bool) anthropicRequest {
	req := anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Stream:      stream,
	}
	if schema != nil {
		req.Tools = []anthropicTool{{
			Name:        "record_result",
			Description: "Record the structured result of the analysis.",
			InputSchema: schema,
		}}
		req.ToolChoice = &anthropicToolChoice{Type: "tool", Name: "record_result"}
		return req
	}
	if enableThinking {
		req.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: thinkingBudgetTokens}
		// The Messages API rejects thinking with a non-default temperature.
		req.Temperature = 1
	}
	return req
}

func (c *AnthropicClient) send(ctx context.Context, body anthropicRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic API returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

// GenerateJSON implements Client. Thinking is dropped when a schema is
// supplied; schema mode and extended thinking are mutually exclusive here.
func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string, schema map[string]any, enableThinking bool) (map[string]any, string) {
	if schema != nil {
		enableThinking = false
	}
	resp, err := c.send(ctx, c.buildRequest(prompt, schema, enableThinking, false))
	if err != nil {
		return nil, ClassifyError(err, c.model)
	}
	defer resp.Body.Close()

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, ClassifyError(fmt.Errorf("decode anthropic response: %w", err), c.model)
	}
	if parsed.StopReason == "max_tokens" {
		return nil, "max_tokens_truncated"
	}

	if schema != nil {
		for _, block := range parsed.Content {
			if block.Type != "tool_use" || len(block.Input) == 0 {
				continue
			}
			var obj map[string]any
			if err := json.Unmarshal(block.Input, &obj); err != nil {
				return nil, ErrSchemaOutputUnexpected
			}
			return obj, ""
		}
		return nil, ErrSchemaOutputUnexpected
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	obj, ok := ExtractJSON(text.String())
	if !ok {
		return nil, ErrJSONParseFailed
	}
	return obj, ""
}

// GenerateStream implements Client using the SSE form of the Messages API.
func (c *AnthropicClient) GenerateStream(ctx context.Context, prompt string, enableThinking bool) <-chan StreamChunk {
	raw := make(chan rawEvent)
	go func() {
		defer close(raw)
		resp, err := c.send(ctx, c.buildRequest(prompt, nil, enableThinking, true))
		if err != nil {
			emitRaw(ctx, raw, rawEvent{err: err})
			return
		}
		defer resp.Body.Close()
		c.consumeSSE(ctx, resp.Body, raw)
	}()
	return batchStream(ctx, raw, c.model)
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		Thinking string `json:"thinking,omitempty"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) consumeSSE(ctx context.Context, body io.Reader, raw chan<- rawEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		switch event.Type {
		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				emitRaw(ctx, raw, rawEvent{text: event.Delta.Text})
			case "thinking_delta":
				emitRaw(ctx, raw, rawEvent{text: event.Delta.Thinking, thinking: true})
			}
		case "error":
			emitRaw(ctx, raw, rawEvent{err: fmt.Errorf("anthropic stream error %s: %s",
				event.Error.Type, event.Error.Message)})
			return
		case "message_stop":
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		emitRaw(ctx, raw, rawEvent{err: fmt.Errorf("read anthropic stream: %w", err)})
	}
}
