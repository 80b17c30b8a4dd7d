package logging

import (
	"testing"
)

func TestConstants(t *testing.T) {
	if FieldMember == "" {
		t.Error("FieldMember constant should not be empty")
	}
	if FieldCount == "" {
		t.Error("FieldCount constant should not be empty")
	}
	if FieldSchema == "" {
		t.Error("FieldSchema constant should not be empty")
	}
	if FieldRow == "" {
		t.Error("FieldRow constant should not be empty")
	}
	if FieldInputFile == "" {
		t.Error("FieldInputFile constant should not be empty")
	}
}
