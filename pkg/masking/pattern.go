package masking

import (
	"log/slog"
	"regexp"
)

// Pattern is one redaction rule: a regex and its replacement.
type Pattern struct {
	Name        string
	Pattern     string
	Replacement string
	Description string
}

// CompiledPattern holds a pre-compiled redaction rule.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns are the redaction rules applied to log messages before
// they leave the process (LLM evidence packs, chat log-tail results).
// Infrastructure names (pods, namespaces, hosts) are deliberately not
// matched: investigators need them.
//
// Group references in replacements must be braced: an unbraced $1 followed
// by a word character parses as a longer group name and expands to nothing.
func builtinPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "api_key",
			Pattern:     `(?i)(api[_-]?key|apikey)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-]{16,}["']?`,
			Replacement: `${1}=__REDACTED_API_KEY__`,
			Description: "API keys",
		},
		{
			Name:        "password",
			Pattern:     `(?i)(password|passwd|pwd)["']?\s*[:=]\s*["']?[^"'\s]{6,}["']?`,
			Replacement: `${1}=__REDACTED_PASSWORD__`,
			Description: "Passwords",
		},
		{
			Name:        "bearer_token",
			Pattern:     `(?i)(bearer\s+|authorization:\s*bearer\s+)[A-Za-z0-9_\-\.=]{16,}`,
			Replacement: `${1}__REDACTED_TOKEN__`,
			Description: "Bearer tokens in headers",
		},
		{
			Name:        "token",
			Pattern:     `(?i)(token|secret)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-\.]{16,}["']?`,
			Replacement: `${1}=__REDACTED_TOKEN__`,
			Description: "Generic tokens and secrets",
		},
		{
			Name:        "aws_access_key",
			Pattern:     `\bAKIA[A-Z0-9]{16}\b`,
			Replacement: `__REDACTED_AWS_KEY__`,
			Description: "AWS access key IDs",
		},
		{
			Name:        "github_token",
			Pattern:     `\bgh[pousr]_[A-Za-z0-9_]{36,255}\b`,
			Replacement: `__REDACTED_GITHUB_TOKEN__`,
			Description: "GitHub tokens",
		},
		{
			Name:        "slack_token",
			Pattern:     `(?i)\bxox[baprs]-[A-Za-z0-9-]{10,72}\b`,
			Replacement: `__REDACTED_SLACK_TOKEN__`,
			Description: "Slack tokens",
		},
		{
			Name:        "pem_block",
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `__REDACTED_PEM_BLOCK__`,
			Description: "PEM certificate and key blocks",
		},
		{
			Name:        "connection_string",
			Pattern:     `(?i)\b([a-z][a-z0-9+]*)://([^:/\s]+):([^@/\s]+)@`,
			Replacement: `${1}://${2}:__REDACTED__@`,
			Description: "Credentials embedded in connection URLs",
		},
	}
}

// compilePatterns compiles the builtin set, skipping any rule that fails to
// compile (logged, never fatal).
func compilePatterns() []*CompiledPattern {
	var out []*CompiledPattern
	for _, p := range builtinPatterns() {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			slog.Error("Failed to compile redaction pattern, skipping",
				"pattern", p.Name, "error", err)
			continue
		}
		out = append(out, &CompiledPattern{
			Name:        p.Name,
			Regex:       re,
			Replacement: p.Replacement,
		})
	}
	return out
}
