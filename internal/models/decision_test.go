package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionFromRecord(t *testing.T) {
	record := map[string]interface{}{
		"is_safe":              true,
		"final_recipients":     []interface{}{"Legal", "HR"},
		"final_urgency":        "High",
		"final_classification": "Report",
		"summary":              "quarterly review",
		"notes":                "",
	}

	decision, err := DecisionFromRecord(record)
	require.NoError(t, err)
	assert.True(t, decision.IsSafe)
	assert.Equal(t, []string{"Legal", "HR"}, decision.FinalRecipients)
	assert.Equal(t, "High", decision.FinalUrgency)
}

func TestDecisionFromRecordRejectsErrorRecord(t *testing.T) {
	_, err := DecisionFromRecord(map[string]interface{}{"error": "model timeout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model timeout")
}

func TestDecisionFromRecordRejectsNil(t *testing.T) {
	_, err := DecisionFromRecord(nil)
	assert.Error(t, err)
}

func TestDecisionFromRecordRejectsUnknownUrgency(t *testing.T) {
	_, err := DecisionFromRecord(map[string]interface{}{
		"final_recipients": []interface{}{"Legal"},
		"final_urgency":    "Catastrophic",
	})
	assert.Error(t, err, "urgency outside the allowed set must fail validation")
}

func TestDecisionFromRecordAllowsEmptyUrgency(t *testing.T) {
	decision, err := DecisionFromRecord(map[string]interface{}{
		"final_recipients": []interface{}{"Legal"},
	})
	require.NoError(t, err)
	assert.Empty(t, decision.FinalUrgency)
}

func TestDecisionFromRecordIgnoresUnknownKeys(t *testing.T) {
	decision, err := DecisionFromRecord(map[string]interface{}{
		"final_recipients": []interface{}{"PR"},
		"model_mood":       "chatty",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PR"}, decision.FinalRecipients)
}

func TestToRecordRoundTrip(t *testing.T) {
	decision := &FinalDecision{
		IsSafe:          true,
		FinalRecipients: []string{"Engineering"},
		FinalUrgency:    "Immediate",
		Summary:         "outage",
	}

	record, err := decision.ToRecord()
	require.NoError(t, err)

	back, err := DecisionFromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, decision.FinalRecipients, back.FinalRecipients)
	assert.Equal(t, decision.FinalUrgency, back.FinalUrgency)
}
