package pipeline

import (
	"reflect"
	"testing"
)

func TestSanitizeRecordRewritesReservedKeyCharacters(t *testing.T) {
	record := map[string]interface{}{
		"$set":      "value",
		"a.b.c":     1,
		"plain_key": "kept",
	}

	clean := SanitizeRecord(record)

	want := map[string]interface{}{
		"_set":      "value",
		"a_b_c":     1,
		"plain_key": "kept",
	}
	if !reflect.DeepEqual(clean, want) {
		t.Errorf("SanitizeRecord = %v, want %v", clean, want)
	}
}

func TestSanitizeRecordRecursesNestedStructures(t *testing.T) {
	record := map[string]interface{}{
		"outer.key": map[string]interface{}{
			"$inner": []interface{}{
				map[string]interface{}{"deep.key": "v"},
				"scalar",
			},
		},
	}

	clean := SanitizeRecord(record)

	outer, ok := clean["outer_key"].(map[string]interface{})
	if !ok {
		t.Fatalf("outer key not sanitized: %v", clean)
	}
	inner, ok := outer["_inner"].([]interface{})
	if !ok {
		t.Fatalf("nested key not sanitized: %v", outer)
	}
	deep, ok := inner[0].(map[string]interface{})
	if !ok || deep["deep_key"] != "v" {
		t.Errorf("key inside sequence not sanitized: %v", inner[0])
	}
	if inner[1] != "scalar" {
		t.Errorf("scalar inside sequence changed: %v", inner[1])
	}
}

func TestSanitizeRecordLeavesValuesUntouched(t *testing.T) {
	record := map[string]interface{}{
		"summary": "price is $9.99, see file.txt",
	}

	clean := SanitizeRecord(record)

	if clean["summary"] != "price is $9.99, see file.txt" {
		t.Errorf("value was rewritten: %v", clean["summary"])
	}
}

func TestSanitizeRecordNil(t *testing.T) {
	if got := SanitizeRecord(nil); got != nil {
		t.Errorf("SanitizeRecord(nil) = %v, want nil", got)
	}
}
