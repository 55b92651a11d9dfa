package interfaces

import (
	"context"

	"github.com/ternarybob/dispatch/internal/models"
)

// Stage is one pluggable unit of document analysis. Classification stages
// read the document's raw content; the finalizer stage additionally reads
// every committed stage result.
//
// Run must not mutate the document and must be safe to re-run: committing a
// fresh result replaces the stage's own namespace, never appends. Generation
// or parse failures degrade to a record carrying an "error" key instead of
// an error return, so one stage's failure never aborts the pipeline.
type Stage interface {
	// Name is the unique stable identifier used as the stage_results
	// namespace for this stage's output.
	Name() string

	// Run produces the stage's structured verdict for the given document
	// snapshot. On failure it returns {"error": <description>}.
	Run(ctx context.Context, doc *models.Document) map[string]interface{}
}
