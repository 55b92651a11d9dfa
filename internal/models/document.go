package models

import (
	"time"
)

// DocumentStatus tracks a document through one processing attempt.
type DocumentStatus string

const (
	DocumentStatusNew         DocumentStatus = "new"
	DocumentStatusProcessing  DocumentStatus = "processing"
	DocumentStatusFinalizing  DocumentStatus = "finalizing"
	DocumentStatusCompleted   DocumentStatus = "completed"
	DocumentStatusQuarantined DocumentStatus = "quarantined"
)

// IsTerminal reports whether the status ends a processing attempt.
// Terminal documents are never re-run for the same content fingerprint.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusQuarantined
}

// Document is the unit of work flowing through the classification pipeline.
// ID is the sha-256 fingerprint of RawContent and doubles as the idempotency
// key: re-ingesting byte-identical content always resolves to the same record.
type Document struct {
	// Identity
	ID        string `json:"id"`         // Content fingerprint (primary key)
	SourceRef string `json:"source_ref"` // Originating artifact path, display only
	Filename  string `json:"filename"`   // Original artifact name, display only

	// Content, set once at creation and never mutated
	RawContent string `json:"raw_content"`

	// StageResults maps stage name -> that stage's committed verdict.
	// Each stage owns exactly one key and never writes a sibling's.
	StageResults map[string]map[string]interface{} `json:"stage_results"`

	// FinalDecision is set at most once per attempt, only by the finalizer.
	FinalDecision map[string]interface{} `json:"final_decision,omitempty"`

	Status DocumentStatus `json:"status"`

	// AttemptID identifies the current processing attempt in logs.
	AttemptID string `json:"attempt_id,omitempty"`

	// Error carries the finalization failure that quarantined the document.
	Error string `json:"error,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageResult returns the committed verdict for a stage, or nil if the
// stage has not run yet.
func (d *Document) StageResult(stage string) map[string]interface{} {
	if d.StageResults == nil {
		return nil
	}
	return d.StageResults[stage]
}
