package llm

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline exceeded", errors.New("rpc error: code = DeadlineExceeded desc = DEADLINE_EXCEEDED"), "deadline_exceeded"},
		{"context deadline", errors.New("Post \"https://api\": context deadline exceeded"), "deadline_exceeded"},
		{"gateway timeout", errors.New("HTTP 504 Gateway Timeout"), "gateway_timeout"},
		{"request timeout", errors.New("HTTP 408 Request Timeout"), "timeout"},
		{"timed out", errors.New("request timed out waiting for response"), "timeout"},
		// Timeout markers outrank auth codes in composite messages.
		{"composite timeout and auth", errors.New("TIMEOUT: 403 PERMISSION_DENIED"), "timeout"},
		{"permission denied", errors.New("rpc error: PERMISSION_DENIED"), "permission_denied"},
		{"http 403", errors.New("HTTP 403 Forbidden"), "permission_denied"},
		{"unauthenticated", errors.New("HTTP 401: invalid api key"), "unauthenticated"},
		{"model not found", errors.New("HTTP 404: model does not exist"), "model_not_found:claude-sonnet-4"},
		{"rate limited", errors.New("HTTP 429 Too Many Requests"), "rate_limited"},
		{"overloaded", errors.New("overloaded_error: Overloaded"), "rate_limited"},
		{"max tokens", errors.New("generation stopped: MAX_TOKENS"), "max_tokens_truncated"},
		{"context length", errors.New("prompt exceeds context length"), "max_tokens_truncated"},
		{"unknown fallback", errors.New("something else entirely"), "llm_error:errors.errorString"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err, "claude-sonnet-4"))
		})
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "errors.errorString", errorKind(errors.New("x")))
	assert.Equal(t, "url.Error", errorKind(&url.Error{Op: "Get", URL: "https://api", Err: errors.New("refused")}))
}
