package interfaces

import (
	"errors"

	"github.com/ternarybob/dispatch/internal/models"
)

// ErrDocumentNotFound is returned by Get when no document exists for a
// fingerprint. Callers branch on it during idempotent ingestion.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStorage is the keyed persistence contract for pipeline documents.
// The document ID (content fingerprint) is the primary key.
//
// MergeStageResult, SetFinalDecision, SetStatus and SetError are partial
// updates: each touches only its own field (or stage_results namespace) and
// runs atomically per key, so concurrent writers to distinct namespaces
// never clobber each other. Upsert is the only whole-record write.
type DocumentStorage interface {
	// Upsert inserts the document if its ID is unseen, otherwise fully
	// replaces the stored record. Never partial.
	Upsert(doc *models.Document) error

	// Get returns the document for the given fingerprint, or
	// ErrDocumentNotFound.
	Get(id string) (*models.Document, error)

	// MergeStageResult sets exactly stage_results[stage] without touching
	// sibling namespaces, raw content or timestamps other than UpdatedAt.
	MergeStageResult(id, stage string, result map[string]interface{}) error

	// SetFinalDecision records the finalizer's verdict.
	SetFinalDecision(id string, decision map[string]interface{}) error

	// SetStatus moves the document to a new lifecycle status.
	SetStatus(id string, status models.DocumentStatus) error

	// SetError records a finalization failure description for diagnostics.
	SetError(id, message string) error
}
