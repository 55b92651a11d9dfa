package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger.
//
// Partial updates (MergeStageResult, SetFinalDecision, SetStatus, SetError)
// run through badgerhold's UpdateMatching, which executes the mutation inside
// a single Badger transaction. That transaction is the atomic-per-key
// boundary the pipeline relies on: two stages merging into distinct
// namespaces of the same document can never clobber each other.
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) Upsert(doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.StageResults == nil {
		doc.StageResults = make(map[string]map[string]interface{})
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) Get(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) MergeStageResult(id, stage string, result map[string]interface{}) error {
	if stage == "" {
		return fmt.Errorf("stage name is required")
	}
	return s.update(id, func(doc *models.Document) {
		if doc.StageResults == nil {
			doc.StageResults = make(map[string]map[string]interface{})
		}
		doc.StageResults[stage] = result
	})
}

func (s *DocumentStorage) SetFinalDecision(id string, decision map[string]interface{}) error {
	return s.update(id, func(doc *models.Document) {
		doc.FinalDecision = decision
	})
}

func (s *DocumentStorage) SetStatus(id string, status models.DocumentStatus) error {
	return s.update(id, func(doc *models.Document) {
		doc.Status = status
	})
}

func (s *DocumentStorage) SetError(id, message string) error {
	return s.update(id, func(doc *models.Document) {
		doc.Error = message
	})
}

// update applies a field mutation to the stored document inside one Badger
// transaction. RawContent and CreatedAt are never touched here.
func (s *DocumentStorage) update(id string, mutate func(doc *models.Document)) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}

	updated := false
	err := s.db.Store().UpdateMatching(&models.Document{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		doc, ok := record.(*models.Document)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		mutate(doc)
		doc.UpdatedAt = time.Now()
		updated = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	if !updated {
		return interfaces.ErrDocumentNotFound
	}
	return nil
}
