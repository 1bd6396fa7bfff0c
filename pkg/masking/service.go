package masking

import (
	"log/slog"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Service applies secret redaction to log messages before they leave the
// process. Created once at startup; thread-safe and stateless aside from
// compiled patterns.
type Service struct {
	patterns    []*CompiledPattern
	codeMaskers []Masker
}

// NewService compiles the builtin redaction patterns and registers
// code-based maskers.
func NewService() *Service {
	s := &Service{
		patterns:    compilePatterns(),
		codeMaskers: []Masker{SecretManifestMasker{}},
	}
	slog.Info("Redaction service initialized",
		"patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers))
	return s
}

// RedactMessage redacts a single log message. Evidence is never dropped:
// on any masker misbehavior the regex sweep result is still returned
// (fail-open for evidence, unlike fail-closed tool-result masking).
func (s *Service) RedactMessage(msg string) string {
	if msg == "" {
		return msg
	}
	for _, m := range s.codeMaskers {
		if m.AppliesTo(msg) {
			msg = m.Mask(msg)
		}
	}
	for _, p := range s.patterns {
		msg = p.Regex.ReplaceAllString(msg, p.Replacement)
	}
	return msg
}

// RedactEntries returns a copy of entries with every message redacted.
// The input slice is not modified; callers hand out the copy.
func (s *Service) RedactEntries(entries []models.LogEntry) []models.LogEntry {
	if len(entries) == 0 {
		return entries
	}
	out := make([]models.LogEntry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].Message = s.RedactMessage(out[i].Message)
	}
	return out
}
