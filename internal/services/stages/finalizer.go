package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
)

// HighSensitivityThreshold is the sensitivity score at or above which the
// unrestricted recipient must not survive finalization unqualified.
const HighSensitivityThreshold = 7

const finalizerPrompt = `You are the finalizer: a chief editor and safety officer with the final say.

Your task is to:
1. Aggregate the results from all classification stages.
2. Resolve any conflicts (e.g., urgency is High but no recipient was suggested).
3. Apply safety controls (highly sensitive content must not go to '%s').
4. Finalize the recipient list and metadata.

Original Content:
%s

Stage Results:
%s

Output Format (JSON only, no markdown fences):
{
  "is_safe": true,
  "final_recipients": ["list"],
  "final_urgency": "string",
  "final_classification": "string",
  "summary": "one sentence summary",
  "notes": "any conflict resolution notes",
  "unrestricted_justification": "required ONLY when final_recipients keeps '%s' for highly sensitive content: state why the unrestricted audience is warranted; otherwise leave empty"
}`

// Finalizer reconciles all stage verdicts into one authoritative decision.
// Unlike the classification stages it consumes every stage_results
// namespace, tolerating absent or errored namespaces as "no verdict
// available". It also enforces the safety override on the parsed decision,
// so the guarantee holds even when the model ignores the instruction.
type Finalizer struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewFinalizer creates the finalizer stage.
func NewFinalizer(llm interfaces.LLMService, logger arbor.ILogger) *Finalizer {
	return &Finalizer{llm: llm, logger: logger}
}

// Name returns the finalizer's stage_results namespace.
func (f *Finalizer) Name() string {
	return StageFinalizer
}

// Run aggregates all stage results into a final decision record.
func (f *Finalizer) Run(ctx context.Context, doc *models.Document) map[string]interface{} {
	results, err := json.MarshalIndent(f.usableResults(doc), "", "  ")
	if err != nil {
		return ErrorRecord(fmt.Sprintf("failed to serialize stage results: %v", err))
	}

	prompt := fmt.Sprintf(finalizerPrompt, models.RecipientAllEmployees, doc.RawContent, string(results), models.RecipientAllEmployees)

	response, err := f.llm.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("document_id", doc.ID).
			Msg("Finalizer generation call failed")
		return ErrorRecord(err.Error())
	}

	record, err := ParseRecord(response)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("document_id", doc.ID).
			Msg("Finalizer returned unparseable output")
		return ErrorRecord(err.Error())
	}

	f.applySafetyOverride(doc, record)

	return record
}

// usableResults returns the stage results visible to the finalizer. Errored
// namespaces are replaced with a "no verdict available" marker rather than
// dropped, so the model knows a stage ran and failed.
func (f *Finalizer) usableResults(doc *models.Document) map[string]interface{} {
	results := make(map[string]interface{})
	for name, record := range doc.StageResults {
		if name == StageFinalizer {
			continue
		}
		if IsError(record) {
			results[name] = map[string]interface{}{"verdict": "unavailable"}
			continue
		}
		results[name] = record
	}
	return results
}

// applySafetyOverride removes the unrestricted recipient from the decision
// when the sensitivity verdict crosses the threshold and the decision does
// not justify keeping it. The model is instructed to do this itself; this is
// the enforcement of record.
//
// Only the dedicated unrestricted_justification field counts as a
// justification. The notes field is filled on nearly every response with
// unrelated conflict-resolution remarks, so it cannot gate the override.
func (f *Finalizer) applySafetyOverride(doc *models.Document, record map[string]interface{}) {
	score, ok := sensitivityScore(doc)
	if !ok || score < HighSensitivityThreshold {
		return
	}

	recipients, ok := record["final_recipients"].([]interface{})
	if !ok {
		return
	}

	if justification, _ := record["unrestricted_justification"].(string); strings.TrimSpace(justification) != "" {
		return
	}

	narrowed := make([]interface{}, 0, len(recipients))
	removed := false
	for _, r := range recipients {
		if name, _ := r.(string); name == models.RecipientAllEmployees {
			removed = true
			continue
		}
		narrowed = append(narrowed, r)
	}
	if !removed {
		return
	}

	record["final_recipients"] = narrowed
	note := fmt.Sprintf("safety override: removed unrestricted recipient '%s' (sensitivity %.0f)", models.RecipientAllEmployees, score)
	if existing, _ := record["notes"].(string); strings.TrimSpace(existing) != "" {
		note = existing + "; " + note
	}
	record["notes"] = note
	record["is_safe"] = false

	f.logger.Warn().
		Str("document_id", doc.ID).
		Float64("sensitivity_score", score).
		Msg("Safety override narrowed unrestricted recipient")
}

// sensitivityScore reads the sensitivity stage's committed score, tolerating
// the numeric types JSON decoding may produce.
func sensitivityScore(doc *models.Document) (float64, bool) {
	result := doc.StageResult(StageSensitivity)
	if IsError(result) {
		return 0, false
	}
	switch v := result["score"].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
