package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
	"github.com/ternarybob/dispatch/internal/services/stages"
)

// StageRunner executes one stage against the latest document state and
// commits the sanitized result into the stage's own namespace.
//
// Two fault classes flow through here differently: a stage's own failure
// (generation error, unparseable output, panic, timeout) is absorbed into an
// in-band error record and committed like any other result, while a store
// failure is retried once and then returned to the caller.
type StageRunner struct {
	store   interfaces.DocumentStorage
	logger  arbor.ILogger
	timeout time.Duration
}

// NewStageRunner creates a stage runner with the given per-stage deadline.
func NewStageRunner(store interfaces.DocumentStorage, logger arbor.ILogger, timeout time.Duration) *StageRunner {
	return &StageRunner{
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// RunAndCommit re-reads the document, runs the stage, sanitizes its verdict
// and merges it into stage_results[stage.Name()]. The re-read is the shared
// state contract: every stage observes all previously committed results.
// Returns the committed record, or an error only if the store failed.
func (r *StageRunner) RunAndCommit(ctx context.Context, documentID string, stage interfaces.Stage) (map[string]interface{}, error) {
	var doc *models.Document
	err := withStoreRetry(func() error {
		var getErr error
		doc, getErr = r.store.Get(documentID)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s for stage %s: %w", documentID, stage.Name(), err)
	}

	startTime := time.Now()
	raw := r.runStage(ctx, stage, doc)
	clean := SanitizeRecord(raw)

	err = withStoreRetry(func() error {
		return r.store.MergeStageResult(documentID, stage.Name(), clean)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit result of stage %s for document %s: %w", stage.Name(), documentID, err)
	}

	r.logger.Info().
		Str("stage", stage.Name()).
		Str("document_id", documentID).
		Bool("errored", stages.IsError(clean)).
		Dur("duration", time.Since(startTime)).
		Msg("Stage result committed")

	return clean, nil
}

// runStage executes the stage under the per-stage deadline. A stage that
// panics or fails to return in time yields an error record instead of
// aborting or blocking the pipeline.
func (r *StageRunner) runStage(ctx context.Context, stage interfaces.Stage, doc *models.Document) map[string]interface{} {
	stageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan map[string]interface{}, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().
					Str("stage", stage.Name()).
					Str("document_id", doc.ID).
					Str("panic", fmt.Sprintf("%v", rec)).
					Msg("Stage panicked")
				resultCh <- stages.ErrorRecord(fmt.Sprintf("stage panicked: %v", rec))
			}
		}()
		resultCh <- stage.Run(stageCtx, doc)
	}()

	select {
	case result := <-resultCh:
		if result == nil {
			return stages.ErrorRecord("stage returned no result")
		}
		return result
	case <-stageCtx.Done():
		r.logger.Warn().
			Str("stage", stage.Name()).
			Str("document_id", doc.ID).
			Dur("timeout", r.timeout).
			Msg("Stage did not return within deadline")
		return stages.ErrorRecord("timeout")
	}
}

// withStoreRetry retries a store operation once before propagating.
func withStoreRetry(op func() error) error {
	if err := op(); err != nil {
		return op()
	}
	return nil
}
