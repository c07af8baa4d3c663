package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrOffline marks operations skipped or refused because the device has no
// network transport. It is a condition, not a failure: callers serve the
// last-known-good local data instead of surfacing an error.
var ErrOffline = errors.New("device is offline")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConfigError is fatal to the whole session: the backend credentials or
// endpoint are bad or missing. The UI blocks entirely until a manual
// retry/reload.
type ConfigError struct {
	Err error
}

func (err *ConfigError) Error() string { return err.Err.Error() }
func (err *ConfigError) Unwrap() error { return err.Err }

// SyncError is a recoverable hiccup during a full-state fetch; the last good
// snapshot stays in place and a non-blocking warning is surfaced.
type SyncError struct {
	Err error
}

func (err *SyncError) Error() string { return err.Err.Error() }
func (err *SyncError) Unwrap() error { return err.Err }

// MutationError wraps a failed single write. The snapshot is never partially
// applied; the initiating collaborator gets a blocking alert.
type MutationError struct {
	Op  string
	Err error
}

func (err *MutationError) Error() string { return fmt.Sprintf("%s: %v", err.Op, err.Err) }
func (err *MutationError) Unwrap() error { return err.Err }

func NewMutationError(op string, err error) error {
	return &MutationError{Op: op, Err: err}
}

// ClassifySyncError sorts a full-state fetch failure into the hard
// configuration bucket or the soft transient one. Credential/endpoint
// problems surface as messages mentioning the API key or the URL.
func ClassifySyncError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "key") || strings.Contains(msg, "URL") {
		return &ConfigError{Err: err}
	}
	return &SyncError{Err: err}
}

func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}

func IsSyncError(err error) bool {
	var serr *SyncError
	return errors.As(err, &serr)
}

func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}
