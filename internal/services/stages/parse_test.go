package stages

import (
	"testing"
)

func TestCleanMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced uppercase", "```JSON\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n  ", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMarkdownFences(tt.input); got != tt.want {
				t.Errorf("CleanMarkdownFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRecord(t *testing.T) {
	record, err := ParseRecord("```json\n{\"level\": \"High\", \"score\": 3}\n```")
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if record["level"] != "High" {
		t.Errorf("level = %v", record["level"])
	}
	if record["score"] != float64(3) {
		t.Errorf("score = %v", record["score"])
	}
}

func TestParseRecordRejectsNonJSON(t *testing.T) {
	if _, err := ParseRecord("I am sorry, I cannot classify this document."); err == nil {
		t.Fatal("prose response must fail to parse")
	}
}

func TestErrorRecordRoundTrip(t *testing.T) {
	record := ErrorRecord("timeout")
	if !IsError(record) {
		t.Error("ErrorRecord output not recognized by IsError")
	}
	if record["error"] != "timeout" {
		t.Errorf("error description lost: %v", record)
	}

	if IsError(map[string]interface{}{"level": "Low"}) {
		t.Error("healthy record misreported as error")
	}
	if !IsError(nil) {
		t.Error("nil record must count as errored")
	}
}
