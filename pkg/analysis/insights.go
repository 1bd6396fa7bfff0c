package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sleuthops/sleuth/pkg/llm"
	"github.com/sleuthops/sleuth/pkg/masking"
	"github.com/sleuthops/sleuth/pkg/models"
)

const maxEvidencePackLogLines = 50

// insightsSchema constrains the LLM output to the fields LLMInsights carries.
var insightsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":    map[string]any{"type": "string"},
		"hypothesis": map[string]any{"type": "string"},
		"next_steps": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []any{"summary"},
}

// Enricher is the optional LLM pass. It reads a finished investigation and
// attaches natural-language insights; it never touches the deterministic
// scores or verdict.
type Enricher struct {
	client      llm.Client
	configError string
	masker      *masking.Service
	includeLogs bool
	logger      *slog.Logger
}

// NewEnricher wires the pass. client may be nil when construction failed;
// configError then carries the factory's code and every Enrich call reports
// it through the status mapping.
func NewEnricher(client llm.Client, configError string, masker *masking.Service, includeLogs bool) *Enricher {
	return &Enricher{
		client:      client,
		configError: configError,
		masker:      masker,
		includeLogs: includeLogs,
		logger:      slog.Default(),
	}
}

// Enrich builds the evidence pack, calls the model, and fills analysis.llm.
// Failures are mapped to a status; they never propagate.
func (e *Enricher) Enrich(ctx context.Context, inv *models.Investigation) {
	if e.client == nil {
		inv.Analysis.LLM = &models.LLMInsights{
			Status:    insightsStatus(e.configError),
			ErrorCode: e.configError,
		}
		return
	}

	pack, err := e.BuildEvidencePack(inv)
	if err != nil {
		inv.Analysis.LLM = &models.LLMInsights{
			Status:    models.LLMInsightsError,
			ErrorCode: "schema_dump_failed",
		}
		return
	}

	prompt := fmt.Sprintf(
		"You are assisting with a Kubernetes incident investigation. "+
			"Given the evidence below, produce a short summary, your best hypothesis, "+
			"and concrete next steps.\n\nEvidence:\n%s", pack)

	obj, code := e.client.GenerateJSON(ctx, prompt, insightsSchema, false)
	if code != "" {
		e.logger.Warn("LLM enrichment failed", "error_code", code, "investigation_id", inv.ID)
		inv.Analysis.LLM = &models.LLMInsights{
			Status:    insightsStatus(code),
			ErrorCode: code,
		}
		return
	}

	insights := &models.LLMInsights{Status: models.LLMInsightsOK}
	if s, ok := obj["summary"].(string); ok {
		insights.Summary = s
	}
	if h, ok := obj["hypothesis"].(string); ok {
		insights.Hypothesis = h
	}
	if steps, ok := obj["next_steps"].([]any); ok {
		for _, step := range steps {
			if s, ok := step.(string); ok {
				insights.NextSteps = append(insights.NextSteps, s)
			}
		}
	}
	inv.Analysis.LLM = insights
}

// BuildEvidencePack serializes the analysis projection of the investigation
// and, when configured, appends a redacted tail of the collected logs.
func (e *Enricher) BuildEvidencePack(inv *models.Investigation) (string, error) {
	projected, err := inv.MarshalProjection(models.ProjectionAnalysis)
	if err != nil {
		return "", err
	}
	if !e.includeLogs || inv.Evidence.Logs == nil || len(inv.Evidence.Logs.Entries) == 0 {
		return string(projected), nil
	}

	entries := inv.Evidence.Logs.Entries
	if len(entries) > maxEvidencePackLogLines {
		entries = entries[len(entries)-maxEvidencePackLogLines:]
	}
	if e.masker != nil {
		entries = e.masker.RedactEntries(entries)
	}
	tail, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(projected) + "\n\nLog tail:\n" + string(tail), nil
}

// insightsStatus maps an LLM error code to the enrichment status.
func insightsStatus(code string) models.LLMInsightsStatus {
	switch code {
	case llm.ErrMissingADCCredentials, llm.ErrMissingGCPProject,
		"sdk_import_failed", "adc_import_failed":
		return models.LLMInsightsUnavailable
	case "rate_limited":
		return models.LLMInsightsRateLimited
	default:
		return models.LLMInsightsError
	}
}
