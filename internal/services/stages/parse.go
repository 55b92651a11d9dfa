package stages

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// CleanMarkdownFences removes an optional fenced-code wrapper the model may
// put around its JSON output.
func CleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// ParseRecord strips markdown fences and parses the model output into a
// structured record.
func ParseRecord(response string) (map[string]interface{}, error) {
	cleaned := CleanMarkdownFences(response)

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return record, nil
}

// ErrorRecord wraps a failure description in the in-band stage fallback
// shape. Stages degrade to this record instead of returning errors so a
// single stage's failure never aborts the pipeline.
func ErrorRecord(description string) map[string]interface{} {
	return map[string]interface{}{"error": description}
}

// IsError reports whether a stage record carries an in-band error.
func IsError(record map[string]interface{}) bool {
	if record == nil {
		return true
	}
	_, ok := record["error"]
	return ok
}
