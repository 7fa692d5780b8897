package seswi

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateName  = errors.New("duplicate session name for this domain")
	ErrNoData         = errors.New("nothing to save")
	ErrInvalidPayload = errors.New("invalid backup payload")
	ErrDecryption     = errors.New("could not decrypt backup")
	ErrNotFound       = errors.New("not found")
	ErrHostAPI        = errors.New("browser API failed")
)

// OpError records the operation that failed. Op is reported to the caller
// as the error context.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// opError wraps err with the operation name unless it already carries one.
func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Err: err}
}

// kindError attaches a sentinel kind to a more specific message.
func kindError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// hostError marks err as a failure of a browser primitive.
func hostError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrHostAPI, what, err)
}

// ErrorContext returns the operation name carried by err, if any.
func ErrorContext(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Op
	}
	return ""
}
