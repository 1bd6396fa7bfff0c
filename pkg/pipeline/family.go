package pipeline

import (
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
)

// playbookHints routes well-known alert names to a family hint before any
// keyword matching runs, so a routed alert wins over accidental overlap.
var playbookHints = map[string]string{
	"KubePodCrashLooping":              "crashloop",
	"CPUThrottlingHigh":                "cpu_throttling",
	"KubePodNotHealthy":                "pod_not_healthy",
	"KubePodNotReady":                  "pod_not_healthy",
	"KubeContainerOOMKilled":           "oom_killed",
	"KubeJobFailed":                    "job_failed",
	"JobFailed":                        "job_failed",
	"TargetDown":                       "target_down",
	"KubeDeploymentReplicasMismatch":   "k8s_rollout_health",
	"KubeStatefulSetReplicasMismatch":  "k8s_rollout_health",
	"KubeDeploymentGenerationMismatch": "k8s_rollout_health",
	"PrometheusTargetMissing":          "observability_pipeline",
	"Watchdog":                         "meta",
	"DeadMansSwitch":                   "meta",
}

// familyRule binds a family to its hint name and keyword list. Declaration
// order is the match order; earlier rules win keyword ties.
type familyRule struct {
	family   models.Family
	hint     string
	keywords []string
}

var familyRules = []familyRule{
	{models.FamilyCrashloop, "crashloop", []string{"crashloop", "backoff"}},
	{models.FamilyCPUThrottling, "cpu_throttling", []string{"cputhrottling", "throttl"}},
	{models.FamilyOOMKilled, "oom_killed", []string{"oomkill", "oom"}},
	{models.FamilyMemoryPressure, "memory_pressure", []string{"memorypressure", "memoryusage"}},
	{models.FamilyHTTP5xx, "http_5xx", []string{"5xx", "errorrate", "httperror"}},
	{models.FamilyTargetDown, "target_down", []string{"targetdown", "instancedown"}},
	{models.FamilyJobFailed, "job_failed", []string{"jobfailed", "cronjob"}},
	{models.FamilyRolloutHealth, "k8s_rollout_health", []string{"replicasmismatch", "rollout", "generationmismatch"}},
	{models.FamilyObservability, "observability_pipeline", []string{"prometheus", "alertmanager", "scrape"}},
	{models.FamilyMeta, "meta", []string{"watchdog", "deadman"}},
	{models.FamilyPodNotHealthy, "pod_not_healthy", []string{"podnothealthy", "podnotready", "notready", "pending"}},
}

// DetectFamily classifies the alert once, before collectors run. The
// playbook hint is consulted first; only then does the keyword scan over
// alertname plus hint text run, in rule declaration order.
func DetectFamily(alert *models.AlertEvent) (models.Family, string) {
	hint := playbookHints[alert.Name()]

	if hint != "" {
		for _, rule := range familyRules {
			if rule.hint == hint {
				return rule.family, hint
			}
		}
	}

	haystack := strings.ToLower(alert.Name() + " " + hint)
	for _, rule := range familyRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.family, hint
			}
		}
	}
	return models.FamilyGeneric, hint
}

// nonPodFamilies never investigate an individual pod even when the alert
// labels happen to carry one.
var nonPodFamilies = map[models.Family]bool{
	models.FamilyTargetDown:    true,
	models.FamilyRolloutHealth: true,
	models.FamilyObservability: true,
	models.FamilyMeta:          true,
}
