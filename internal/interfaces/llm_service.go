package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for generation calls made by the
// classification stages. Implementations wrap a cloud provider (Gemini,
// Claude) and apply provider-side rate limiting and timeouts.
type LLMService interface {
	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context in
	// chronological order, including system prompts and user messages.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the service is operational and can handle
	// requests. Called during application startup to fail fast.
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations.
	Close() error
}

// Ingestor accepts one artifact into the pipeline. The watcher drives it per
// discovered file; any other trigger source may call it the same way.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) error
}
