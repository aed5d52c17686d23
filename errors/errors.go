// Package errors defines the typed errors shared across the revocation
// processing core. Errors carry a coarse ErrorType category so that callers
// can branch on the kind of failure with errors.Is without string matching:
//
//	if errors.Is(err, rerrors.AlreadyRevoked) { ... }
package errors

import (
	"fmt"
)

// ErrorType provides a coarse category for core errors. Individual errors
// wrap their ErrorType, so both `errors.Is(err, rerrors.NotFound)` and
// unwrapping to a *CoreError work.
type ErrorType int

// Error implements the error interface so an ErrorType can be the target of
// errors.Is.
func (t ErrorType) Error() string {
	switch t {
	case InternalServer:
		return "internal error"
	case NotFound:
		return "certificate not found"
	case AlreadyRevoked:
		return "certificate is already revoked"
	case NotOnHold:
		return "certificate is not on hold"
	case SystemCert:
		return "certificate is a protected system certificate"
	case EmptyBatch:
		return "no certificates eligible for the request"
	case Submission:
		return "request submission failed"
	case Service:
		return "request completed with service errors"
	case Malformed:
		return "malformed input"
	default:
		return "unknown error type"
	}
}

const (
	InternalServer ErrorType = iota
	// NotFound means no certificate record matched the given selector.
	NotFound
	// AlreadyRevoked means the target certificate is already in a revoked
	// state and the operation is not an off-hold (REMOVE_FROM_CRL) request.
	AlreadyRevoked
	// NotOnHold means an unrevocation was attempted against a certificate
	// whose current revocation reason is not certificateHold.
	NotOnHold
	// SystemCert means the target is a CA/system certificate that may not be
	// revoked through the ordinary entry points.
	SystemCert
	// EmptyBatch means target selection produced no eligible certificates
	// for a reason other than "every target was already revoked".
	EmptyBatch
	// Submission covers failures between the processor and the request
	// queue: the queue was unreachable, or the payload could not be
	// prepared (e.g. certificate decode failure).
	Submission
	// Service means the queue completed the request but one or more
	// downstream services (CRL update, directory publishing) failed.
	Service
	// Malformed covers unparseable caller input (bad serials, bad filter
	// expressions, undecodable certificates).
	Malformed
)

// CoreError is the concrete error type returned by the revocation core.
type CoreError struct {
	Type   ErrorType
	Detail string
}

func (e *CoreError) Error() string {
	return e.Detail
}

func (e *CoreError) Unwrap() error {
	return e.Type
}

// New is a convenience function for creating a new CoreError.
func New(errType ErrorType, msg string, args ...any) error {
	return &CoreError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
	}
}

func InternalServerError(msg string, args ...any) error {
	return New(InternalServer, msg, args...)
}

func NotFoundError(msg string, args ...any) error {
	return New(NotFound, msg, args...)
}

func AlreadyRevokedError(msg string, args ...any) error {
	return New(AlreadyRevoked, msg, args...)
}

func NotOnHoldError(msg string, args ...any) error {
	return New(NotOnHold, msg, args...)
}

func SystemCertError(msg string, args ...any) error {
	return New(SystemCert, msg, args...)
}

func EmptyBatchError(msg string, args ...any) error {
	return New(EmptyBatch, msg, args...)
}

func SubmissionError(msg string, args ...any) error {
	return New(Submission, msg, args...)
}

func ServiceError(msg string, args ...any) error {
	return New(Service, msg, args...)
}

func MalformedError(msg string, args ...any) error {
	return New(Malformed, msg, args...)
}
