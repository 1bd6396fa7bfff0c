package analysis

import (
	"fmt"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Score maps features onto impact and confidence, both clamped to [0,100].
// The heuristic is intentionally coarse: impact reflects how broken the
// target looks, confidence reflects how much corroborating evidence landed.
func Score(features *models.Features) *models.Scores {
	impact := 20
	switch features.Family {
	case models.FamilyCrashloop, models.FamilyOOMKilled, models.FamilyJobFailed:
		impact = 70
	case models.FamilyHTTP5xx, models.FamilyTargetDown:
		impact = 60
	case models.FamilyPodNotHealthy, models.FamilyRolloutHealth, models.FamilyMemoryPressure:
		impact = 50
	case models.FamilyCPUThrottling:
		impact = 40
	case models.FamilyObservability, models.FamilyMeta:
		impact = 15
	}
	if features.PodPhase != "" && features.PodPhase != "Running" {
		impact += 10
	}
	if !features.Ready && features.PodPhase != "" {
		impact += 5
	}
	if features.RestartRate5mMax > 0 {
		impact += 10
	}
	if features.HTTP5xxRate > 1 {
		impact += 10
	}

	confidence := 20
	if features.PodPhase != "" {
		confidence += 25
	}
	if len(features.EventReasons) > 0 {
		confidence += 15
	}
	if features.LogsStatus == models.StatusOK {
		confidence += 20
	}
	if features.RestartRate5mMax > 0 || features.HTTP5xxRate > 0 {
		confidence += 15
	}
	if features.HistoricalMode {
		// Historical evidence is circumstantial; the pod is gone.
		confidence -= 15
	}

	return &models.Scores{
		ImpactScore:     clampScore(impact),
		ConfidenceScore: clampScore(confidence),
	}
}

// BuildVerdict produces the headline conclusion. Classification and
// one-liner are always non-empty for a run that reached this stage.
func BuildVerdict(features *models.Features, enrichment *models.Decision) *models.Verdict {
	classification := string(features.Family)
	if enrichment != nil && enrichment.Label != "" {
		classification = enrichment.Label
	}

	oneLiner := fmt.Sprintf("%s incident", features.Family)
	switch {
	case features.PodPhase != "" && !features.Ready:
		oneLiner = fmt.Sprintf("%s: pod in phase %s and not ready", features.Family, features.PodPhase)
	case features.RestartRate5mMax > 0:
		oneLiner = fmt.Sprintf("%s: containers restarting at %.3f/s", features.Family, features.RestartRate5mMax)
	case features.HTTP5xxRate > 0:
		oneLiner = fmt.Sprintf("%s: serving 5xx at %.3f/s", features.Family, features.HTTP5xxRate)
	case features.HistoricalMode:
		oneLiner = fmt.Sprintf("%s: target no longer exists, analyzed from historical evidence", features.Family)
	}

	v := &models.Verdict{
		Classification: classification,
		OneLiner:       oneLiner,
	}
	if enrichment != nil {
		v.Contributing = append(v.Contributing, enrichment.Why...)
	}
	return v
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
