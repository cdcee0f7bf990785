// models/errors.go
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a sync failure so callers can tell recoverable
// conditions from fatal ones without matching on strings.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	CheckFailed
	FetchError
	MissingMemberError
	ParseWarning
	LoadError
	ConfirmationDeclined
	CompactError
	ConfigError
)

func (k ErrorKind) String() string {
	switch k {
	case CheckFailed:
		return "CheckFailed"
	case FetchError:
		return "FetchError"
	case MissingMemberError:
		return "MissingMemberError"
	case ParseWarning:
		return "ParseWarning"
	case LoadError:
		return "LoadError"
	case ConfirmationDeclined:
		return "ConfirmationDeclined"
	case CompactError:
		return "CompactError"
	case ConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// SyncError is the error type returned by every sync stage.
type SyncError struct {
	Kind  ErrorKind
	Stage string
	Table TableKind // empty when the failure is not table specific
	Err   error
}

func (e *SyncError) Error() string {
	msg := e.Kind.String()
	if e.Stage != "" {
		msg += " during " + e.Stage
	}
	if e.Table != "" {
		msg += " (" + string(e.Table) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// Is matches a SyncError sentinel by kind, so errors.Is(err, ErrConfirmationDeclined)
// holds for any declined error regardless of stage.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Stage == "" && t.Table == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrCheckFailed          = &SyncError{Kind: CheckFailed}
	ErrFetch                = &SyncError{Kind: FetchError}
	ErrMissingMember        = &SyncError{Kind: MissingMemberError}
	ErrLoad                 = &SyncError{Kind: LoadError}
	ErrConfirmationDeclined = &SyncError{Kind: ConfirmationDeclined}
)

// NewSyncError wraps err with a kind and stage.
func NewSyncError(kind ErrorKind, stage string, err error) *SyncError {
	return &SyncError{Kind: kind, Stage: stage, Err: err}
}

// TableError is NewSyncError for failures tied to one table.
func TableError(kind ErrorKind, stage string, table TableKind, err error) *SyncError {
	return &SyncError{Kind: kind, Stage: stage, Table: table, Err: err}
}

// Errorf builds a SyncError around a formatted message.
func Errorf(kind ErrorKind, stage, format string, args ...any) *SyncError {
	return &SyncError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first SyncError in err's chain.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Recoverable reports whether the caller may retry or force past err.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case CheckFailed, FetchError:
		return true
	}
	return false
}
