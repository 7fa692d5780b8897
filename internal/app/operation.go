package app

import (
	"strings"

	"github.com/google/uuid"
)

// Operation status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI or native host invocation. RunID tags every log
// line of the invocation. Only commands that change sessions record the
// operation in the database, which assigns ID.
type Operation struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates an unrecorded operation. Parameters are joined with
// spaces.
func NewOperation(operation string, parameters ...string) *Operation {
	return &Operation{
		RunID:      uuid.NewString(),
		Operation:  operation,
		Parameters: strings.Join(parameters, " "),
		Status:     StatusSuccess,
	}
}

// Persisted reports whether the operation has been recorded.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Finish records the outcome of err and returns it unchanged.
func (op *Operation) Finish(err error) error {
	if err != nil {
		op.Status = StatusError
	}
	return err
}
