package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindEngineNotReady Kind = "engine_not_ready"
	KindBusy           Kind = "busy"
	KindNotFound       Kind = "not_found"
	KindDecode         Kind = "decode_error"
	KindEngineFailure  Kind = "engine_failure"
	KindPersistence    Kind = "persistence_failure"
)

// Sentinel errors matched by (*Failure).Is.
var (
	ErrEngineNotReady = errors.New("OCR engine not ready")
	ErrBusy           = errors.New("recognition already in progress")
	ErrNotFound       = errors.New("image not found")
	ErrDecode         = errors.New("image could not be decoded")
	ErrEngineFailure  = errors.New("recognition failed")
	ErrPersistence    = errors.New("sidecar not written")
)

var kindSentinels = map[Kind]error{
	KindEngineNotReady: ErrEngineNotReady,
	KindBusy:           ErrBusy,
	KindNotFound:       ErrNotFound,
	KindDecode:         ErrDecode,
	KindEngineFailure:  ErrEngineFailure,
	KindPersistence:    ErrPersistence,
}

// Failure is the immutable outcome of a rejected or failed request.
type Failure struct {
	RequestID  string `json:"requestId,omitempty"`
	SourcePath string `json:"sourcePath"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func newFailure(kind Kind, path, message string, cause error) *Failure {
	return &Failure{SourcePath: path, Kind: kind, Message: message, Err: cause}
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is reports whether target is the sentinel for f's kind.
func (f *Failure) Is(target error) bool {
	return kindSentinels[f.Kind] == target
}

// KindOf returns the Kind of err if it is, or wraps, a *Failure.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
