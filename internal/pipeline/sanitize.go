package pipeline

import (
	"strings"
)

// SanitizeRecord rewrites any key within a nested record that the document
// store cannot accept in a field path: the '.' path separator and the '$'
// reserved prefix are substituted with '_'. The transform recurses through
// mappings and sequences at every depth and leaves scalar values untouched.
// It is pure and total: non-mapping input comes back unchanged.
func SanitizeRecord(record map[string]interface{}) map[string]interface{} {
	if record == nil {
		return nil
	}
	return sanitizeValue(record).(map[string]interface{})
}

func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		clean := make(map[string]interface{}, len(v))
		for key, inner := range v {
			clean[sanitizeKey(key)] = sanitizeValue(inner)
		}
		return clean
	case []interface{}:
		clean := make([]interface{}, len(v))
		for i, inner := range v {
			clean[i] = sanitizeValue(inner)
		}
		return clean
	default:
		return value
	}
}

func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "$", "_")
	return key
}
