package app

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters []string
		want       string
	}{
		{name: "with parameters", operation: "Rename", parameters: []string{"1705314600000", "work"}, want: "1705314600000 work"},
		{name: "no parameters", operation: "Clean", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters...)

			if op.Operation != tt.operation {
				t.Errorf("Operation = %q, want %q", op.Operation, tt.operation)
			}
			if op.Parameters != tt.want {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.want)
			}
			if op.Status != StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
			}
			if op.Persisted() {
				t.Error("Persisted() = true for a new operation")
			}
			if _, err := uuid.Parse(op.RunID); err != nil {
				t.Errorf("RunID %q is not a uuid: %v", op.RunID, err)
			}
		})
	}
}

func TestOperation_Finish(t *testing.T) {
	op := NewOperation("Capture")
	if err := op.Finish(nil); err != nil || op.Status != StatusSuccess {
		t.Errorf("Finish(nil) = %v, status %q", err, op.Status)
	}

	boom := errors.New("boom")
	if err := op.Finish(boom); !errors.Is(err, boom) {
		t.Errorf("Finish() = %v, want %v", err, boom)
	}
	if op.Status != StatusError {
		t.Errorf("Status = %q, want %q", op.Status, StatusError)
	}
}
