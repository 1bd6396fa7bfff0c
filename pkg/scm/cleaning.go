package scm

import (
	"regexp"
	"strings"
)

// Kubernetes-generated name suffixes are stripped before catalog lookups and
// naming-convention guesses. The rules run in order; the first hit wins.
var (
	// Job pod: <job>-<epoch>-<epoch>-<hash> (controller appends both a
	// schedule timestamp pair and a pod hash).
	jobPodPattern = regexp.MustCompile(`^(.+)-\d+-\d+-[a-z0-9]{5,10}$`)
	// Job: <cronjob>-<epoch>-<epoch>
	jobPattern = regexp.MustCompile(`^(.+)-\d+-\d+$`)
	// CronJob child: <cronjob>-<timestamp>
	cronJobPattern = regexp.MustCompile(`^(.+)-\d{8,10}$`)

	hashSegment = regexp.MustCompile(`^[a-z0-9]{5,10}$`)
	vowels      = "aeiou"
)

// workloadSuffixes are conventional role suffixes stripped during fuzzy
// catalog lookups (order is significant; longer variants first).
var workloadSuffixes = []string{
	"-executor", "-handler", "-consumer", "-producer",
	"-worker", "-runner", "-job", "-cron", "-daemon",
}

// isProbableHash reports whether a trailing name segment looks like a
// Kubernetes-generated hash: 5–10 lowercase alphanumerics that either carry
// no vowels or mix letters and digits. Real words ("server", "api") fail
// both tests.
func isProbableHash(segment string) bool {
	if !hashSegment.MatchString(segment) {
		return false
	}
	hasVowel := strings.ContainsAny(segment, vowels)
	hasAlpha := strings.ContainsAny(segment, "abcdefghijklmnopqrstuvwxyz")
	hasDigit := strings.ContainsAny(segment, "0123456789")
	return !hasVowel || (hasAlpha && hasDigit)
}

// CleanWorkloadName strips Kubernetes-generated suffixes from a workload or
// pod name. Cleaning an already-clean name is a no-op.
func CleanWorkloadName(name string) string {
	if name == "" {
		return name
	}
	if m := jobPodPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if idx := strings.LastIndexByte(name, '-'); idx > 0 {
		if isProbableHash(name[idx+1:]) {
			return name[:idx]
		}
	}
	if m := jobPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := cronJobPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// StripWorkloadSuffix removes one conventional role suffix, if present.
// Returns the stripped name and whether anything changed.
func StripWorkloadSuffix(name string) (string, bool) {
	for _, suffix := range workloadSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), true
		}
	}
	return name, false
}
