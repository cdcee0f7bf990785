// handlers/output.go
package handlers

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics, so JSON on Writer stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success writes data: as the JSON envelope, or through text.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.json() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure writes the partial result of a failed operation followed by the
// error. The returned ExitError is marked reported.
func (f *OutputFormatter) Failure(data any, err error, text func(w io.Writer)) error {
	if f.json() {
		if encErr := f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: errorCode(err), Message: err.Error()},
		}); encErr != nil {
			return encErr
		}
	} else {
		if text != nil {
			text(f.Writer)
		}
		fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
	}
	return &ExitError{Code: GetExitCode(err), Err: err, Reported: true}
}

// Error writes an error that has no result attached.
func (f *OutputFormatter) Error(err error) {
	if f.json() {
		_ = f.encode(CLIResponse{Status: "error", Error: &CLIError{Code: errorCode(err), Message: err.Error()}})
		return
	}
	fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
