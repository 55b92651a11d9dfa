package stages

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/interfaces"
	"github.com/ternarybob/dispatch/internal/models"
)

const urgencyPrompt = `You are an urgency classifier with the judgement of a veteran news editor deciding between 'Breaking News' and 'Feature'.

Analyze the following text and determine its urgency level.
Levels: 'Immediate', 'High', 'Medium', 'Low'.

Content:
%s

Output Format (JSON only, no markdown fences):
{
  "level": "generated_level",
  "reasoning": "brief explanation"
}`

// NewUrgencyStage classifies how quickly a document needs attention.
func NewUrgencyStage(llm interfaces.LLMService, logger arbor.ILogger) interfaces.Stage {
	return &Classifier{
		name:   StageUrgency,
		llm:    llm,
		logger: logger,
		prompt: func(doc *models.Document) string {
			return fmt.Sprintf(urgencyPrompt, doc.RawContent)
		},
	}
}

const sensitivityPrompt = `You are a sensitivity analyzer acting as a compliance officer ensuring content is safe and flagged if sensitive.

Analyze the following text for sensitive content (political bias, violence, explicit content, legal exposure, etc.).
Score from 0 (not sensitive) to 10 (highly sensitive).

Content:
%s

Output Format (JSON only, no markdown fences):
{
  "score": integer_score,
  "flags": ["list", "of", "flags"],
  "reasoning": "brief explanation"
}`

// NewSensitivityStage scores how sensitive a document's content is.
func NewSensitivityStage(llm interfaces.LLMService, logger arbor.ILogger) interfaces.Stage {
	return &Classifier{
		name:   StageSensitivity,
		llm:    llm,
		logger: logger,
		prompt: func(doc *models.Document) string {
			return fmt.Sprintf(sensitivityPrompt, doc.RawContent)
		},
	}
}

const topicPrompt = `You are a topic classification specialist who categorizes information precisely, like a librarian.

Identify the main topics and keywords of the document.

Content:
%s

Output Format (JSON only, no markdown fences):
{
  "main_topic": "string",
  "sub_topics": ["list", "of", "strings"],
  "keywords": ["list", "of", "keywords"],
  "reasoning": "brief explanation"
}`

// NewTopicStage extracts the document's main topic and keywords.
func NewTopicStage(llm interfaces.LLMService, logger arbor.ILogger) interfaces.Stage {
	return &Classifier{
		name:   StageTopic,
		llm:    llm,
		logger: logger,
		prompt: func(doc *models.Document) string {
			return fmt.Sprintf(topicPrompt, doc.RawContent)
		},
	}
}

const docTypePrompt = `You are a content type classifier with the eye of a media analyst.

Classify the type of this document.
Types: 'Report', 'Opinion', 'Editorial', 'Satire', 'Advertisement', 'Press Release'.

Content:
%s

Output Format (JSON only, no markdown fences):
{
  "type": "generated_type",
  "reasoning": "brief explanation"
}`

// NewDocTypeStage classifies the document's editorial type.
func NewDocTypeStage(llm interfaces.LLMService, logger arbor.ILogger) interfaces.Stage {
	return &Classifier{
		name:   StageDocType,
		llm:    llm,
		logger: logger,
		prompt: func(doc *models.Document) string {
			return fmt.Sprintf(docTypePrompt, doc.RawContent)
		},
	}
}

const recipientPrompt = `You are a distribution specialist, a communications director who knows exactly who needs to see what.

Based on the content, suggest recipients from this list:
[%s].

Content:
%s

Output Format (JSON only, no markdown fences):
{
  "recipients": ["list", "of", "recipients"],
  "reasoning": "brief explanation"
}`

// NewRecipientStage suggests which teams should receive the document.
func NewRecipientStage(llm interfaces.LLMService, logger arbor.ILogger) interfaces.Stage {
	recipients := "'" + strings.Join(models.KnownRecipients, "', '") + "'"
	return &Classifier{
		name:   StageRecipient,
		llm:    llm,
		logger: logger,
		prompt: func(doc *models.Document) string {
			return fmt.Sprintf(recipientPrompt, recipients, doc.RawContent)
		},
	}
}
