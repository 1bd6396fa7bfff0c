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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultVertexModel = "gemini-2.0-flash"
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// VertexClient talks to the Vertex AI Gemini endpoint using ambient
// application-default credentials.
type VertexClient struct {
	project     string
	location    string
	model       string
	temperature float64
	maxTokens   int
	tokens      oauth2.TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewVertexClient resolves application-default credentials eagerly so a
// misconfigured environment fails at construction, not mid-investigation.
func NewVertexClient(ctx context.Context, project, location, model string, temperature float64, maxTokens int, timeout time.Duration) (*VertexClient, error) {
	tokens, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("application default credentials: %w", err)
	}
	if model == "" {
		model = defaultVertexModel
	}
	return &VertexClient{
		project:     project,
		location:    location,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      slog.Default(),
	}, nil
}

type vertexPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type vertexContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []vertexPart `json:"parts"`
}

type vertexThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

type vertexGenerationConfig struct {
	Temperature      float64               `json:"temperature"`
	MaxOutputTokens  int                   `json:"maxOutputTokens"`
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any        `json:"responseSchema,omitempty"`
	ThinkingConfig   *vertexThinkingConfig `json:"thinkingConfig,omitempty"`
}

type vertexRequest struct {
	Contents         []vertexContent        `json:"contents"`
	GenerationConfig vertexGenerationConfig `json:"generationConfig"`
}

type vertexResponse struct {
	Candidates []struct {
		Content      vertexContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (c *VertexClient) endpoint(verb string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.location, c.project, c.location, c.model, verb)
}

func (c *VertexClient) buildRequest(prompt string, schema map[string]any, enableThinking bool) vertexRequest {
	req := vertexRequest{
		Contents: []vertexContent{{Role: "user", Parts: []vertexPart{{Text: prompt}}}},
		GenerationConfig: vertexGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		},
	}
	if schema != nil {
		req.GenerationConfig.ResponseMimeType = "application/json"
		req.GenerationConfig.ResponseSchema = schema
		return req
	}
	if enableThinking {
		req.GenerationConfig.ThinkingConfig = &vertexThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  thinkingBudgetTokens,
		}
	}
	return req
}

func (c *VertexClient) send(ctx context.Context, url string, body vertexRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("vertex access token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertex request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("vertex API returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

// GenerateJSON implements Client. Schema mode requests native JSON output;
// thinking is dropped when a schema is supplied.
func (c *VertexClient) GenerateJSON(ctx context.Context, prompt string, schema map[string]any, enableThinking bool) (map[string]any, string) {
	if schema != nil {
		enableThinking = false
	}
	resp, err := c.send(ctx, c.endpoint("generateContent"), c.buildRequest(prompt, schema, enableThinking))
	if err != nil {
		return nil, ClassifyError(err, c.model)
	}
	defer resp.Body.Close()

	var parsed vertexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, ClassifyError(fmt.Errorf("decode vertex response: %w", err), c.model)
	}
	if len(parsed.Candidates) == 0 {
		return nil, ErrSchemaOutputUnexpected
	}
	candidate := parsed.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		return nil, "max_tokens_truncated"
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if !part.Thought {
			text.WriteString(part.Text)
		}
	}
	obj, ok := ExtractJSON(text.String())
	if !ok {
		if schema != nil {
			return nil, ErrSchemaOutputUnexpected
		}
		return nil, ErrJSONParseFailed
	}
	return obj, ""
}

// GenerateStream implements Client via the SSE streaming endpoint.
func (c *VertexClient) GenerateStream(ctx context.Context, prompt string, enableThinking bool) <-chan StreamChunk {
	raw := make(chan rawEvent)
	go func() {
		defer close(raw)
		url := c.endpoint("streamGenerateContent") + "?alt=sse"
		resp, err := c.send(ctx, url, c.buildRequest(prompt, nil, enableThinking))
		if err != nil {
			emitRaw(ctx, raw, rawEvent{err: err})
			return
		}
		defer resp.Body.Close()
		c.consumeSSE(ctx, resp.Body, raw)
	}()
	return batchStream(ctx, raw, c.model)
}

func (c *VertexClient) consumeSSE(ctx context.Context, body io.Reader, raw chan<- rawEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var chunk vertexResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, candidate := range chunk.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				emitRaw(ctx, raw, rawEvent{text: part.Text, thinking: part.Thought})
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		emitRaw(ctx, raw, rawEvent{err: fmt.Errorf("read vertex stream: %w", err)})
	}
}
