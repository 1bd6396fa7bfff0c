package analysis

import "github.com/sleuthops/sleuth/pkg/models"

// Analyze runs every deterministic pass in order and fills the analysis
// record. The LLM pass is separate (see Enricher); it runs after this and
// cannot change anything written here.
func Analyze(inv *models.Investigation) {
	features := ExtractFeatures(inv)
	enrichment := EnrichFamily(inv, features)

	inv.Analysis.Features = features
	inv.Analysis.FamilyEnrichment = enrichment
	inv.Analysis.Scores = Score(features)
	inv.Analysis.Verdict = BuildVerdict(features, enrichment)
	inv.Analysis.Decision = enrichment
	inv.Analysis.Hypotheses = BuildHypotheses(inv, features)
	inv.Analysis.Noise = ClassifyNoise(inv, features)

	// Change and capacity passes only make sense for a concrete pod.
	if inv.Target.IsPodScoped() {
		inv.Analysis.Changes = AnalyzeChanges(inv)
		inv.Analysis.Capacity = AnalyzeCapacity(inv)
	}
}
