package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/syssam/quarry/dialect/sql"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A query failed to compile or check
	ExitCommandError = 2 // Command error (invalid flags, unreadable files, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	skipMark = color.New(color.FgYellow).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// CompiledQuery is the JSON form of a compiled query.
type CompiledQuery struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Dialect string         `json:"dialect"`
	SQL     string         `json:"sql"`
	Binds   map[string]any `json:"binds,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeBinds renders the bindings of stmt as a table.
func writeBinds(w io.Writer, stmt *sql.Statement) {
	all := stmt.Binds.All()
	if len(all) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Bind", "Value", "Escaped"})
	table.SetAutoWrapText(false)
	for _, bd := range all {
		table.Append([]string{":" + bd.Name + ":", fmt.Sprintf("%v", bd.Value), fmt.Sprintf("%t", bd.Escape)})
	}
	table.Render()
}
