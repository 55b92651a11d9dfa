package common

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Fingerprint returns the content fingerprint for raw artifact bytes.
// It is a pure function of the bytes and serves as the document's primary
// key: byte-identical artifacts always map to the same document.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewAttemptID generates a unique processing attempt ID with the "run_" prefix
// Format: run_<uuid>
func NewAttemptID() string {
	return "run_" + uuid.New().String()
}
