package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// RecipientAllEmployees is the unrestricted recipient. The finalizer's safety
// override narrows it away for highly sensitive documents unless the decision
// carries an explicit justification.
const RecipientAllEmployees = "All Employees"

// KnownRecipients is the closed set the recipient stage suggests from.
var KnownRecipients = []string{
	"Legal", "HR", "PR", "Finance", "Engineering", "Executive", RecipientAllEmployees,
}

var decisionValidator = validator.New()

// FinalDecision is the finalizer's reconciled verdict across all stage
// results. It is stored on the document as a generic record; this typed view
// exists for validation and for the distributor's recipient fan-out.
type FinalDecision struct {
	IsSafe              bool     `json:"is_safe"`
	FinalRecipients     []string `json:"final_recipients"`
	FinalUrgency        string   `json:"final_urgency" validate:"omitempty,oneof=Immediate High Medium Low"`
	FinalClassification string   `json:"final_classification"`
	Summary             string   `json:"summary"`
	Notes               string   `json:"notes"`
}

// DecisionFromRecord decodes a stage-result style record into a typed
// FinalDecision and validates it. Records containing an "error" key are
// rejected before decoding.
func DecisionFromRecord(record map[string]interface{}) (*FinalDecision, error) {
	if record == nil {
		return nil, fmt.Errorf("final decision record is empty")
	}
	if errVal, ok := record["error"]; ok {
		return nil, fmt.Errorf("final decision carries error: %v", errVal)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode final decision: %w", err)
	}

	var decision FinalDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("failed to decode final decision: %w", err)
	}

	if err := decisionValidator.Struct(&decision); err != nil {
		return nil, fmt.Errorf("final decision failed validation: %w", err)
	}

	return &decision, nil
}

// ToRecord converts the decision back into the generic record shape used by
// stage results and the document store.
func (d *FinalDecision) ToRecord() (map[string]interface{}, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}
