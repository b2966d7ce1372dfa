package quarry

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrUsage is returned when a statement is compiled from incomplete or
	// inconsistent builder state, e.g. an INSERT without data.
	ErrUsage = errors.New("quarry: invalid builder usage")

	// ErrArgumentType is returned when a closure-accepting method receives a
	// nil closure or a closure that returns no builder.
	ErrArgumentType = errors.New("quarry: invalid argument type")

	// ErrNoIndex is returned when a batch update or conflict-style upsert has
	// no index (match) column.
	ErrNoIndex = errors.New("quarry: no index column")

	// ErrEmptyBatch is returned when a batch operation receives zero rows.
	ErrEmptyBatch = errors.New("quarry: empty batch")
)

// UsageError represents a programming mistake in the way a builder was used.
type UsageError struct {
	Op  string // Operation (e.g. "insert", "update", "groupEnd")
	Msg string
}

// Error returns the error string.
func (e *UsageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("quarry: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("quarry: %s", e.Msg)
}

// Is reports whether the target error matches UsageError.
// This allows errors.Is(usageErr, ErrUsage) to return true.
func (e *UsageError) Is(err error) bool {
	return err == ErrUsage
}

// NewUsageError returns a new UsageError for the given operation.
func NewUsageError(op, msg string) *UsageError {
	return &UsageError{Op: op, Msg: msg}
}

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	var e *UsageError
	return errors.As(err, &e) || errors.Is(err, ErrUsage)
}

// ArgumentTypeError represents a closure argument contract violation.
type ArgumentTypeError struct {
	Op   string // Method that received the argument
	Want string // Expected argument shape
	Got  string // Received argument shape
}

// Error returns the error string.
func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("quarry: %s: expected %s, got %s", e.Op, e.Want, e.Got)
}

// Is reports whether the target error matches ArgumentTypeError.
func (e *ArgumentTypeError) Is(err error) bool {
	return err == ErrArgumentType
}

// NewArgumentTypeError returns a new ArgumentTypeError.
func NewArgumentTypeError(op, want, got string) *ArgumentTypeError {
	return &ArgumentTypeError{Op: op, Want: want, Got: got}
}

// IsArgumentTypeError returns true if the error is an ArgumentTypeError.
func IsArgumentTypeError(err error) bool {
	if err == nil {
		return false
	}
	var e *ArgumentTypeError
	return errors.As(err, &e) || errors.Is(err, ErrArgumentType)
}

// NoIndexError is returned by batch operations that need an index column.
type NoIndexError struct {
	Op  string
	Row int // Offending row, or -1 when no index was given at all
}

// Error returns the error string.
func (e *NoIndexError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("quarry: %s: row %d has no value for the index column", e.Op, e.Row)
	}
	return fmt.Sprintf("quarry: %s: you must specify an index column", e.Op)
}

// Is reports whether the target error matches NoIndexError.
func (e *NoIndexError) Is(err error) bool {
	return err == ErrNoIndex
}

// NewNoIndexError returns a new NoIndexError for a missing index column.
func NewNoIndexError(op string) *NoIndexError {
	return &NoIndexError{Op: op, Row: -1}
}

// NewNoIndexErrorWithRow returns a new NoIndexError for a row missing the index key.
func NewNoIndexErrorWithRow(op string, row int) *NoIndexError {
	return &NoIndexError{Op: op, Row: row}
}

// IsNoIndexError returns true if the error is a NoIndexError.
func IsNoIndexError(err error) bool {
	if err == nil {
		return false
	}
	var e *NoIndexError
	return errors.As(err, &e) || errors.Is(err, ErrNoIndex)
}

// EmptyBatchError is returned when a batch operation has zero rows.
type EmptyBatchError struct {
	Op string
}

// Error returns the error string.
func (e *EmptyBatchError) Error() string {
	return fmt.Sprintf("quarry: %s: batch has no rows", e.Op)
}

// Is reports whether the target error matches EmptyBatchError.
func (e *EmptyBatchError) Is(err error) bool {
	return err == ErrEmptyBatch
}

// NewEmptyBatchError returns a new EmptyBatchError.
func NewEmptyBatchError(op string) *EmptyBatchError {
	return &EmptyBatchError{Op: op}
}

// IsEmptyBatchError returns true if the error is an EmptyBatchError.
func IsEmptyBatchError(err error) bool {
	if err == nil {
		return false
	}
	var e *EmptyBatchError
	return errors.As(err, &e) || errors.Is(err, ErrEmptyBatch)
}

// CompileError wraps the errors that prevented a statement from compiling.
type CompileError struct {
	Kind string // Statement kind (e.g. "select", "insert_batch")
	Err  error  // Underlying error, possibly joined
}

// Error returns the error string.
func (e *CompileError) Error() string {
	return fmt.Sprintf("quarry: compiling %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewCompileError returns a new CompileError.
func NewCompileError(kind string, err error) *CompileError {
	return &CompileError{Kind: kind, Err: err}
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e)
}
