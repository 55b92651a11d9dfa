package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
)

// memStore is an in-memory DocumentStorage with per-operation failure
// injection for exercising the retry-once contract.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]*models.Document
	failures map[string]int // operation name -> remaining injected failures
	statuses []models.DocumentStatus
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string]*models.Document),
		failures: make(map[string]int),
	}
}

func (m *memStore) failNext(op string, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = times
}

func (m *memStore) maybeFail(op string) error {
	if m.failures[op] > 0 {
		m.failures[op]--
		return fmt.Errorf("injected %s failure", op)
	}
	return nil
}

func (m *memStore) Upsert(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("upsert"); err != nil {
		return err
	}
	clone := *doc
	if clone.StageResults == nil {
		clone.StageResults = make(map[string]map[string]interface{})
	}
	m.docs[doc.ID] = &clone
	m.statuses = append(m.statuses, doc.Status)
	return nil
}

func (m *memStore) Get(id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("get"); err != nil {
		return nil, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, interfaces.ErrDocumentNotFound
	}
	clone := *doc
	clone.StageResults = make(map[string]map[string]interface{}, len(doc.StageResults))
	for k, v := range doc.StageResults {
		clone.StageResults[k] = v
	}
	return &clone, nil
}

func (m *memStore) MergeStageResult(id, stage string, result map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("merge"); err != nil {
		return err
	}
	doc, ok := m.docs[id]
	if !ok {
		return interfaces.ErrDocumentNotFound
	}
	doc.StageResults[stage] = result
	return nil
}

func (m *memStore) SetFinalDecision(id string, decision map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("decision"); err != nil {
		return err
	}
	doc, ok := m.docs[id]
	if !ok {
		return interfaces.ErrDocumentNotFound
	}
	doc.FinalDecision = decision
	return nil
}

func (m *memStore) SetStatus(id string, status models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("status"); err != nil {
		return err
	}
	doc, ok := m.docs[id]
	if !ok {
		return interfaces.ErrDocumentNotFound
	}
	doc.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memStore) statusHistory() []models.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DocumentStatus(nil), m.statuses...)
}

func (m *memStore) SetError(id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return interfaces.ErrDocumentNotFound
	}
	doc.Error = message
	return nil
}

func (m *memStore) get(id string) *models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id]
}

// stubStage returns a fixed record, optionally panicking or observing the
// document snapshot it was handed.
type stubStage struct {
	name    string
	result  map[string]interface{}
	panics  bool
	observe func(doc *models.Document)
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Run(ctx context.Context, doc *models.Document) map[string]interface{} {
	if s.observe != nil {
		s.observe(doc)
	}
	if s.panics {
		panic("stub stage exploded")
	}
	return s.result
}

// funcStage dispatches to an arbitrary function, used for finalizer fakes.
type funcStage struct {
	name string
	fn   func(doc *models.Document) map[string]interface{}
}

func (f *funcStage) Name() string { return f.name }

func (f *funcStage) Run(ctx context.Context, doc *models.Document) map[string]interface{} {
	return f.fn(doc)
}

// recordingDistributor counts calls without touching the filesystem.
type recordingDistributor struct {
	mu           sync.Mutex
	distributed  int
	quarantined  int
	lastDecision *models.FinalDecision
	failWith     error
}

func (d *recordingDistributor) Distribute(doc *models.Document, decision *models.FinalDecision, sourcePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.distributed++
	d.lastDecision = decision
	return nil
}

func (d *recordingDistributor) Quarantine(sourcePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quarantined++
	return nil
}
