package engine

import (
	"fmt"

	apperrors "github.com/kepler-labs/matchsim/internal/platform/errors"
)

// Kind classifies the four error categories the engine can report, per the
// error-handling design: configuration errors are rejected synchronously,
// population errors guard calls made before GeneratePopulation, integrity
// violations indicate an engine bug, and serialization failures are never
// produced internally (they exist only for host-boundary bridges).
type Kind int

const (
	// KindInvalidConfiguration indicates UpdateConfig rejected a config.
	KindInvalidConfiguration Kind = iota
	// KindPopulationNotInitialised indicates a call before GeneratePopulation.
	KindPopulationNotInitialised
	// KindIntegrityViolation indicates a defensive internal-consistency check failed.
	KindIntegrityViolation
	// KindSerializationFailure is reserved for host-boundary bridges; the
	// engine itself never returns it.
	KindSerializationFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindPopulationNotInitialised:
		return "PopulationNotInitialised"
	case KindIntegrityViolation:
		return "IntegrityViolation"
	case KindSerializationFailure:
		return "SerializationFailure"
	default:
		return "Unknown"
	}
}

// Error is the error type returned from every engine entry point that can
// fail. It wraps the platform structured-error type so a host can map it
// to a gRPC status without the engine importing any transport package.
type Error struct {
	Kind  Kind
	inner *apperrors.Error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.inner.Error())
}

// Unwrap exposes the underlying structured error for errors.As/errors.Is.
func (e *Error) Unwrap() error { return e.inner }

// Code returns the machine-readable error code for host-side dispatch.
func (e *Error) Code() apperrors.Code { return e.inner.Code }

func newErr(kind Kind, code apperrors.Code, message string) *Error {
	return &Error{Kind: kind, inner: apperrors.New(code, message)}
}

func newErrf(kind Kind, code apperrors.Code, format string, args ...any) *Error {
	return newErr(kind, code, fmt.Sprintf(format, args...))
}

func errPopulationNotInitialised() *Error {
	return newErr(KindPopulationNotInitialised, apperrors.CodePopulationNotInitialised,
		"generate_population must be called before tick or any query")
}

func errIntegrity(code apperrors.Code, format string, args ...any) *Error {
	return newErrf(KindIntegrityViolation, code, format, args...)
}
