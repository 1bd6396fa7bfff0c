package llm

import (
	"fmt"
	"strings"
)

// Configuration error codes returned by the factory.
const (
	ErrMissingGCPProject      = "missing_gcp_project"
	ErrMissingGCPLocation     = "missing_gcp_location"
	ErrMissingADCCredentials  = "missing_adc_credentials"
	ErrMissingAPIKey          = "missing_api_key"
	ErrProviderNotConfigured  = "provider_not_configured"
	ErrJSONParseFailed        = "json_parse_failed"
	ErrSchemaOutputUnexpected = "schema_output_unexpected"
)

// ClassifyError maps a raw provider failure to a stable code. The check
// order matters: timeout markers outrank auth codes, auth outranks 404, and
// so on, so that composite messages like "TIMEOUT: 403 PERMISSION_DENIED"
// land in the timeout family.
func ClassifyError(err error, model string) string {
	msg := strings.ToUpper(err.Error())

	switch {
	case strings.Contains(msg, "DEADLINE_EXCEEDED"),
		strings.Contains(msg, "CONTEXT DEADLINE EXCEEDED"):
		return "deadline_exceeded"
	case strings.Contains(msg, "504"), strings.Contains(msg, "GATEWAY TIMEOUT"):
		return "gateway_timeout"
	case strings.Contains(msg, "408"),
		strings.Contains(msg, "TIMEOUT"),
		strings.Contains(msg, "TIMED OUT"):
		return "timeout"
	}

	switch {
	case strings.Contains(msg, "403"), strings.Contains(msg, "PERMISSION_DENIED"):
		return "permission_denied"
	case strings.Contains(msg, "401"), strings.Contains(msg, "UNAUTHENTICATED"):
		return "unauthenticated"
	case strings.Contains(msg, "404"):
		return "model_not_found:" + model
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "OVERLOADED"),
		strings.Contains(msg, "RATE LIMIT"):
		return "rate_limited"
	case strings.Contains(msg, "MAX_TOKENS"), strings.Contains(msg, "CONTEXT LENGTH"):
		return "max_tokens_truncated"
	}

	return fmt.Sprintf("llm_error:%s", errorKind(err))
}

// errorKind derives a short type name for the fallback code, e.g.
// "url.Error" for a wrapped transport failure.
func errorKind(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimLeft(name, "*")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
