package collectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/sleuthops/sleuth/pkg/logsclient"
	"github.com/sleuthops/sleuth/pkg/models"
)

const (
	logTailLimit          = 100
	maxErrorPatterns      = 10
	maxErrorPatternLength = 200
)

var errorLinePattern = regexp.MustCompile(`(?i)\b(error|exception|fatal|panic|traceback|failed)\b`)

// CollectLogs fetches the bounded log tail for the resolved target and
// derives the distinct error patterns later passes scan.
func CollectLogs(ctx context.Context, deps *Deps, inv *models.Investigation, res Resolution) {
	if deps.Logs == nil {
		return
	}
	target := inv.Target
	if res.PodPattern == "" || target.Namespace == "" {
		return
	}

	evidence := deps.Logs.FetchRecent(ctx, logsclient.FetchParams{
		Pod:        res.PodPattern,
		Namespace:  target.Namespace,
		Container:  target.Container,
		Window:     inv.Window,
		Limit:      logTailLimit,
		PodIsRegex: res.PodIsRegex,
	})
	if evidence.Status == models.StatusUnavailable {
		inv.AddError("logs", evidence.Reason)
	}
	evidence.ErrorPatterns = extractErrorPatterns(evidence.Entries)
	inv.Evidence.SetLogs(evidence)
}

// extractErrorPatterns keeps the first occurrence of each distinct
// error-looking line, bounded in count and length.
func extractErrorPatterns(entries []models.LogEntry) []string {
	seen := map[string]bool{}
	var patterns []string
	for _, entry := range entries {
		msg := strings.TrimSpace(entry.Message)
		if msg == "" || !errorLinePattern.MatchString(msg) {
			continue
		}
		if len(msg) > maxErrorPatternLength {
			msg = msg[:maxErrorPatternLength]
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		patterns = append(patterns, msg)
		if len(patterns) >= maxErrorPatterns {
			break
		}
	}
	return patterns
}
