package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/common"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
	"github.com/ternarybob/dispatch/internal/services/stages"
)

// Distributor performs recipient fan-out for a completed document and routes
// failed artifacts to the quarantine location.
type Distributor interface {
	// Distribute copies the source artifact and a metadata record into every
	// resolved recipient location, then removes the source. The source
	// survives any partial failure.
	Distribute(doc *models.Document, decision *models.FinalDecision, sourcePath string) error

	// Quarantine relocates an artifact to the inspectable error location.
	Quarantine(sourcePath string) error
}

// Orchestrator owns the document lifecycle: content-addressed ingestion,
// sequential stage execution, finalization and distribution or quarantine.
//
// State machine per document: new -> processing -> finalizing ->
// {completed, quarantined}. Terminal documents are never re-run; the same
// artifact bytes re-ingested later are a no-op.
type Orchestrator struct {
	store       interfaces.DocumentStorage
	runner      *StageRunner
	classifiers []interfaces.Stage
	finalizer   interfaces.Stage
	distributor Distributor
	logger      arbor.ILogger
}

// NewOrchestrator wires the pipeline. Classifiers run in the given order;
// the finalizer runs after all of them over the fully reloaded document.
func NewOrchestrator(
	store interfaces.DocumentStorage,
	runner *StageRunner,
	classifiers []interfaces.Stage,
	finalizer interfaces.Stage,
	distributor Distributor,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		runner:      runner,
		classifiers: classifiers,
		finalizer:   finalizer,
		distributor: distributor,
		logger:      logger,
	}
}

// IngestFile reads one artifact from disk and ingests it.
func (o *Orchestrator) IngestFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	return o.Ingest(ctx, path, content)
}

// Ingest is the pipeline entry point for one artifact, callable regardless
// of trigger source. The content fingerprint is the idempotency key:
// byte-identical re-submissions of terminal documents do not re-run the
// pipeline or re-distribute, while a crashed attempt resumes.
func (o *Orchestrator) Ingest(ctx context.Context, sourceRef string, content []byte) error {
	id := common.Fingerprint(content)

	o.logger.Info().
		Str("document_id", id).
		Str("source", sourceRef).
		Msg("Ingesting artifact")

	var existing *models.Document
	err := withStoreRetry(func() error {
		var getErr error
		existing, getErr = o.store.Get(id)
		if errors.Is(getErr, interfaces.ErrDocumentNotFound) {
			existing = nil
			return nil
		}
		return getErr
	})
	if err != nil {
		return fmt.Errorf("failed to check existing document %s: %w", id, err)
	}

	if existing != nil && existing.Status.IsTerminal() {
		return o.handleTerminal(existing, sourceRef)
	}

	doc := &models.Document{
		ID:           id,
		SourceRef:    sourceRef,
		Filename:     filepath.Base(sourceRef),
		RawContent:   string(content),
		StageResults: make(map[string]map[string]interface{}),
		Status:       models.DocumentStatusNew,
		AttemptID:    common.NewAttemptID(),
	}
	if existing != nil {
		// Interrupted earlier attempt: keep identity, start a fresh attempt.
		doc.CreatedAt = existing.CreatedAt
	}

	if err := withStoreRetry(func() error { return o.store.Upsert(doc) }); err != nil {
		return fmt.Errorf("failed to persist document %s: %w", id, err)
	}

	return o.runPipeline(ctx, doc.ID, sourceRef)
}

// handleTerminal resolves re-ingestion of an already-terminal document. A
// quarantined artifact still in the feed is moved back to the error sink; a
// completed one whose source was never cleaned up resumes distribution
// (recipient copies may be re-written, which is benign).
func (o *Orchestrator) handleTerminal(doc *models.Document, sourceRef string) error {
	if _, err := os.Stat(sourceRef); err != nil {
		o.logger.Info().
			Str("document_id", doc.ID).
			Str("status", string(doc.Status)).
			Msg("Artifact already processed, skipping")
		return nil
	}

	switch doc.Status {
	case models.DocumentStatusQuarantined:
		o.logger.Info().
			Str("document_id", doc.ID).
			Msg("Re-seen quarantined artifact, routing back to error sink")
		return o.distributor.Quarantine(sourceRef)

	case models.DocumentStatusCompleted:
		decision, err := models.DecisionFromRecord(doc.FinalDecision)
		if err != nil {
			return fmt.Errorf("completed document %s has unusable decision: %w", doc.ID, err)
		}
		o.logger.Info().
			Str("document_id", doc.ID).
			Msg("Re-seen completed artifact, resuming distribution")
		return o.distribute(doc, decision, sourceRef)
	}
	return nil
}

// runPipeline drives one processing attempt end to end.
func (o *Orchestrator) runPipeline(ctx context.Context, id, sourceRef string) error {
	if err := withStoreRetry(func() error {
		return o.store.SetStatus(id, models.DocumentStatusProcessing)
	}); err != nil {
		return fmt.Errorf("failed to move document %s to processing: %w", id, err)
	}

	// Sequential stage loop. No stage failure aborts it: faults are
	// committed in-band and the next stage still runs.
	for _, stage := range o.classifiers {
		if _, err := o.runner.RunAndCommit(ctx, id, stage); err != nil {
			return fmt.Errorf("pipeline aborted at stage %s: %w", stage.Name(), err)
		}
	}

	if err := withStoreRetry(func() error {
		return o.store.SetStatus(id, models.DocumentStatusFinalizing)
	}); err != nil {
		return fmt.Errorf("failed to move document %s to finalizing: %w", id, err)
	}

	// The runner re-reads the document, so the finalizer observes every
	// classification commit of this attempt.
	final, err := o.runner.RunAndCommit(ctx, id, o.finalizer)
	if err != nil {
		return fmt.Errorf("finalization aborted for document %s: %w", id, err)
	}

	if stages.IsError(final) {
		return o.quarantine(id, sourceRef, fmt.Sprintf("%v", final["error"]))
	}

	decision, err := models.DecisionFromRecord(final)
	if err != nil {
		return o.quarantine(id, sourceRef, err.Error())
	}

	if err := withStoreRetry(func() error { return o.store.SetFinalDecision(id, final) }); err != nil {
		return fmt.Errorf("failed to record final decision for document %s: %w", id, err)
	}
	if err := withStoreRetry(func() error {
		return o.store.SetStatus(id, models.DocumentStatusCompleted)
	}); err != nil {
		return fmt.Errorf("failed to complete document %s: %w", id, err)
	}

	var doc *models.Document
	if err := withStoreRetry(func() error {
		var getErr error
		doc, getErr = o.store.Get(id)
		return getErr
	}); err != nil {
		return fmt.Errorf("failed to reload document %s for distribution: %w", id, err)
	}

	return o.distribute(doc, decision, sourceRef)
}

// quarantine is the finalization-failure terminal path: record the error,
// mark the document and relocate the artifact to the error sink. The
// outcome is handled, not propagated.
func (o *Orchestrator) quarantine(id, sourceRef, reason string) error {
	o.logger.Error().
		Str("document_id", id).
		Str("reason", reason).
		Msg("Finalization failed, quarantining document")

	if err := withStoreRetry(func() error { return o.store.SetError(id, reason) }); err != nil {
		return fmt.Errorf("failed to record quarantine reason for document %s: %w", id, err)
	}
	if err := withStoreRetry(func() error {
		return o.store.SetStatus(id, models.DocumentStatusQuarantined)
	}); err != nil {
		return fmt.Errorf("failed to quarantine document %s: %w", id, err)
	}

	if err := o.distributor.Quarantine(sourceRef); err != nil {
		return fmt.Errorf("failed to move artifact %s to error sink: %w", sourceRef, err)
	}
	return nil
}

// distribute fans the artifact out to every recipient. A distribution
// failure (including an empty recipient set) routes the artifact to the
// error sink but leaves the document completed with its decision intact:
// the decision is still valid, only delivery failed.
func (o *Orchestrator) distribute(doc *models.Document, decision *models.FinalDecision, sourceRef string) error {
	if err := o.distributor.Distribute(doc, decision, sourceRef); err != nil {
		o.logger.Error().
			Err(err).
			Str("document_id", doc.ID).
			Msg("Distribution failed, routing artifact to error sink")

		if qErr := o.distributor.Quarantine(sourceRef); qErr != nil {
			return fmt.Errorf("distribution failed (%w) and artifact could not be quarantined: %v", err, qErr)
		}
		return fmt.Errorf("distribution failed for document %s: %w", doc.ID, err)
	}

	o.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Int("recipients", len(decision.FinalRecipients)).
		Msg("Document processed and distributed")

	return nil
}
