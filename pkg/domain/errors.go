package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity is returned when no identity source exists and prompting is not allowed.
	ErrMissingIdentity = errors.New("missing identity")
	// ErrInputCancelled is returned when interactive input ends (EOF or interrupt).
	ErrInputCancelled = errors.New("input cancelled")
	// ErrInvalidIdentityFormat is recoverable while prompting and fatal for environment values.
	ErrInvalidIdentityFormat = errors.New("invalid identity format")
	// ErrToolchainInstallFailed is returned when the toolchain installer fails.
	ErrToolchainInstallFailed = errors.New("toolchain install failed")
	// ErrCliInstallFailed is returned when the CLI installer exits non-zero.
	ErrCliInstallFailed = errors.New("cli install failed")
	// ErrInstallTimeout is returned when the CLI installer exceeds its deadline.
	ErrInstallTimeout = errors.New("install timeout")
	// ErrBinaryNotFound is returned when no candidate path holds the node executable.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrRegistrationFailed is always tolerated; it only appears in logs and journals.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrLaunchFailed is returned when the node process cannot be spawned.
	ErrLaunchFailed = errors.New("launch failed")
	// ErrInterrupted is returned when a signal arrives between stages.
	ErrInterrupted = errors.New("interrupted")
	// ErrConfigSaveFailed is tolerated: the node runs without a persisted config.
	ErrConfigSaveFailed = errors.New("config save failed")
)

// ErrInstallFailed is the short name used by the CLI installer contract.
var ErrInstallFailed = ErrCliInstallFailed

// StageError wraps a classified failure of a bootstrap stage.
type StageError struct {
	Stage  Stage
	Kind   error
	Stderr string
	Err    error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStageError builds a StageError. err may be nil.
func NewStageError(stage Stage, kind error, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// Failf builds a StageError with a formatted cause.
func Failf(stage Stage, kind error, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithStderr attaches captured standard error for diagnostics.
func (e *StageError) WithStderr(stderr string) *StageError {
	e.Stderr = stderr
	return e
}

// IsFatal reports whether err must terminate the run.
// Registration and config save failures are tolerated.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrRegistrationFailed) && !errors.Is(err, ErrConfigSaveFailed)
}
