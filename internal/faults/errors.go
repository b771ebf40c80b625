package faults

import (
	"errors"
	"fmt"
)

// Kind is the category of a device communication error.
type Kind int

const (
	// KindUnknown indicates an unclassified error.
	KindUnknown Kind = iota
	// KindSetup indicates a socket could not be bound or opened.
	KindSetup
	// KindValidation indicates a command argument outside its protocol range.
	KindValidation
	// KindDecode indicates a malformed or unrecognized inbound payload.
	KindDecode
	// KindTransport indicates a mid-session send or receive failure.
	KindTransport
	// KindNegotiationTimeout indicates the side-channel rendezvous expired.
	KindNegotiationTimeout
	// KindDuplicateAlias indicates an alias candidate that is already bound.
	KindDuplicateAlias
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "Setup Failure"
	case KindValidation:
		return "Validation Failure"
	case KindDecode:
		return "Protocol Decode Failure"
	case KindTransport:
		return "Transport Failure"
	case KindNegotiationTimeout:
		return "Negotiation Timeout"
	case KindDuplicateAlias:
		return "Duplicate Alias"
	case KindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// DeviceError is an error from device communication, tagged with its Kind.
type DeviceError struct {
	Kind    Kind   // Category of error
	Message string // Human-readable error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Setup creates a setup failure (cannot bind/open a socket).
func Setup(message string, err error) *DeviceError {
	return &DeviceError{Kind: KindSetup, Message: message, Err: err}
}

// Validationf creates a validation failure from a format string.
// Validation failures are raised before any network I/O happens.
func Validationf(format string, args ...any) *DeviceError {
	return &DeviceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Decode creates a protocol decode failure.
func Decode(message string, err error) *DeviceError {
	return &DeviceError{Kind: KindDecode, Message: message, Err: err}
}

// Transport creates a transport failure.
func Transport(message string, err error) *DeviceError {
	return &DeviceError{Kind: KindTransport, Message: message, Err: err}
}

// NegotiationTimeout creates a side-channel negotiation timeout.
func NegotiationTimeout(message string) *DeviceError {
	return &DeviceError{Kind: KindNegotiationTimeout, Message: message}
}

// DuplicateAlias creates a duplicate alias error.
func DuplicateAlias(alias string) *DeviceError {
	return &DeviceError{Kind: KindDuplicateAlias, Message: fmt.Sprintf("alias %q is already bound", alias)}
}

// KindOf returns the Kind of err, or KindUnknown when err is not a
// *DeviceError anywhere in its chain.
func KindOf(err error) Kind {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Kind
	}
	return KindUnknown
}

// IsSetup checks whether an error is a setup failure.
func IsSetup(err error) bool { return KindOf(err) == KindSetup }

// IsValidation checks whether an error is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsDecode checks whether an error is a protocol decode failure.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }

// IsTransport checks whether an error is a transport failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsNegotiationTimeout checks whether an error is a negotiation timeout.
func IsNegotiationTimeout(err error) bool { return KindOf(err) == KindNegotiationTimeout }

// IsDuplicateAlias checks whether an error is a duplicate alias error.
func IsDuplicateAlias(err error) bool { return KindOf(err) == KindDuplicateAlias }
