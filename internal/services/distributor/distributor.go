package distributor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/common"
	"github.com/ternarybob/dispatch/internal/models"
)

// ErrNoRecipients marks a decision that finalized with an empty recipient
// set. Deliberately a delivery failure, not a pipeline failure: the document
// keeps its decision, only the artifact goes to the error sink.
var ErrNoRecipients = errors.New("final decision names no recipients")

// metadataRecord is the sidecar written next to every delivered copy.
type metadataRecord struct {
	OriginalFilename string                 `json:"original_filename"`
	ID               string                 `json:"id"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// Service fans a completed document out to one delivery directory per
// recipient and routes failed artifacts to the error directory.
type Service struct {
	recipientsDir string
	errorDir      string
	logger        arbor.ILogger
}

// NewService creates a distributor rooted at the configured directories.
func NewService(config *common.DistributorConfig, logger arbor.ILogger) *Service {
	return &Service{
		recipientsDir: config.RecipientsDir,
		errorDir:      config.ErrorDir,
		logger:        logger,
	}
}

// EnsureDirs creates the recipients root and error directory if absent.
// Called once at startup.
func (s *Service) EnsureDirs() error {
	for _, dir := range []string{s.recipientsDir, s.errorDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Distribute replicates the artifact to every recipient location together
// with a metadata sidecar, then removes the source. Fan-out is all-or-keep:
// the source artifact is only removed after every recipient was written, so
// a partial failure leaves it in place for a later retry (already-written
// copies are simply re-written then).
func (s *Service) Distribute(doc *models.Document, decision *models.FinalDecision, sourcePath string) error {
	if decision == nil || len(decision.FinalRecipients) == 0 {
		return ErrNoRecipients
	}

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source artifact %s: %w", sourcePath, err)
	}

	metadata, err := json.MarshalIndent(metadataRecord{
		OriginalFilename: doc.Filename,
		ID:               doc.ID,
		Metadata:         doc.FinalDecision,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata for document %s: %w", doc.ID, err)
	}

	for _, recipient := range decision.FinalRecipients {
		if err := s.deliver(recipient, doc.Filename, content, metadata); err != nil {
			return fmt.Errorf("delivery to recipient %q incomplete: %w", recipient, err)
		}
	}

	// All recipients written; the source leaves the ingestion location.
	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("failed to remove source artifact %s: %w", sourcePath, err)
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Int("recipients", len(decision.FinalRecipients)).
		Msg("Artifact distributed to all recipients")

	return nil
}

// deliver writes the artifact copy and metadata sidecar into one recipient's
// delivery directory.
func (s *Service) deliver(recipient, filename string, content, metadata []byte) error {
	dir := filepath.Join(s.recipientsDir, Slugify(recipient))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create delivery directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), content, 0644); err != nil {
		return fmt.Errorf("failed to write artifact copy: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename+".json"), metadata, 0644); err != nil {
		return fmt.Errorf("failed to write metadata record: %w", err)
	}
	return nil
}

// Quarantine relocates an artifact to the error directory for inspection.
// A quarantined artifact is never silently dropped: failure to move it is
// reported to the caller.
func (s *Service) Quarantine(sourcePath string) error {
	if err := os.MkdirAll(s.errorDir, 0755); err != nil {
		return fmt.Errorf("failed to create error directory %s: %w", s.errorDir, err)
	}

	dest := filepath.Join(s.errorDir, filepath.Base(sourcePath))
	if err := os.Rename(sourcePath, dest); err != nil {
		// Rename fails across filesystems; fall back to copy+remove.
		content, readErr := os.ReadFile(sourcePath)
		if readErr != nil {
			return fmt.Errorf("failed to quarantine artifact %s: %w", sourcePath, err)
		}
		if writeErr := os.WriteFile(dest, content, 0644); writeErr != nil {
			return fmt.Errorf("failed to quarantine artifact %s: %w", sourcePath, writeErr)
		}
		if removeErr := os.Remove(sourcePath); removeErr != nil {
			return fmt.Errorf("failed to remove quarantined source %s: %w", sourcePath, removeErr)
		}
	}

	s.logger.Warn().
		Str("artifact", filepath.Base(sourcePath)).
		Str("error_dir", s.errorDir).
		Msg("Artifact moved to error sink")

	return nil
}

// Slugify resolves a recipient name to its stable delivery-location name:
// lower-cased, whitespace collapsed to '_', path separators and other
// path-unsafe characters normalized to '-'.
func Slugify(recipient string) string {
	slug := strings.ToLower(strings.TrimSpace(recipient))

	var b strings.Builder
	for _, r := range slug {
		switch {
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
