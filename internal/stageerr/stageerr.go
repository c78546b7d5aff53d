// Package stageerr defines the tagged error kinds every pipeline stage
// returns, so the orchestrator (and callers using errors.Is/As) can
// branch on failure category without string matching.
package stageerr

import "errors"

// Kind tags a Error with the taxonomy category it belongs to.
type Kind string

const (
	KindUnsupportedFormat   Kind = "unsupported_format"
	KindDecodeFailure       Kind = "decode_failure"
	KindInvalidControlPoint Kind = "invalid_control_points"
	KindSingularTransform   Kind = "singular_transform"
	KindInsufficientData    Kind = "insufficient_data"
	KindTimeout             Kind = "stage_timeout"
	KindCancelled           Kind = "stage_cancelled"
	KindPersistence         Kind = "persistence_failure"
	KindOCRUnavailable      Kind = "ocr_unavailable"
	KindGazetteerUnavailable Kind = "gazetteer_unavailable"
	KindInvalidConfig       Kind = "invalid_config"
)

// Error wraps an underlying cause with a Kind and the stage that
// produced it, so errors.Is(err, stageerr.New(stage, kind, "", nil))
// style Kind checks work while still carrying a human-readable message
// and a wrapped cause for %w formatting.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Stage + ": " + e.Msg + ": " + e.Cause.Error()
	}
	return e.Stage + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, enabling
// errors.Is(err, stageerr.New(stage, kind, "", nil)) style sentinel checks
// without exposing a fixed set of package-level sentinel values.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New builds a stage error. Cause may be nil.
func New(stage string, kind Kind, msg string, cause error) *Error {
	return &Error{Stage: stage, Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
