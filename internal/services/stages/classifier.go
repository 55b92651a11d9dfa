package stages

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
)

// Stage name constants. Each is the stage_results namespace owned by that
// stage; the registered pipeline order is the order of AllClassifiers.
const (
	StageUrgency     = "urgency"
	StageSensitivity = "sensitivity"
	StageTopic       = "topic"
	StageDocType     = "doctype"
	StageRecipient   = "recipient"
	StageFinalizer   = "finalizer"
)

// Classifier is a single classification stage: a name plus a prompt
// template rendered against the document. All classifier variants share the
// same generate-clean-parse flow; only the template differs.
type Classifier struct {
	name   string
	llm    interfaces.LLMService
	logger arbor.ILogger
	prompt func(doc *models.Document) string
}

// Name returns the stage's stage_results namespace.
func (c *Classifier) Name() string {
	return c.name
}

// Run sends the rendered prompt to the generation service and parses the
// verdict. Generation or parse failures degrade to an in-band error record;
// Run never returns nil and never mutates the document.
func (c *Classifier) Run(ctx context.Context, doc *models.Document) map[string]interface{} {
	response, err := c.llm.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: c.prompt(doc)},
	})
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("stage", c.name).
			Str("document_id", doc.ID).
			Msg("Stage generation call failed")
		return ErrorRecord(err.Error())
	}

	record, err := ParseRecord(response)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("stage", c.name).
			Str("document_id", doc.ID).
			Msg("Stage returned unparseable output")
		return ErrorRecord(err.Error())
	}

	return record
}

// AllClassifiers returns the classification stages in their fixed declared
// order. Order matters for log readability only; the stages are mutually
// independent.
func AllClassifiers(llm interfaces.LLMService, logger arbor.ILogger) []interfaces.Stage {
	return []interfaces.Stage{
		NewUrgencyStage(llm, logger),
		NewSensitivityStage(llm, logger),
		NewTopicStage(llm, logger),
		NewDocTypeStage(llm, logger),
		NewRecipientStage(llm, logger),
	}
}
