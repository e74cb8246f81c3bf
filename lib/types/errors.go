package types

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Client-side Error Taxonomy
// --------------------------------------------------------------------------

// ErrorKind partitions client-side failures into the classes the executor's
// retry logic distinguishes. Server decisions are a separate type
// (ServerError) because they carry the numeric result code.
type ErrorKind uint8

const (
	// KindInvalidKey - unsupported user key type. Encode-time, never retried.
	KindInvalidKey ErrorKind = iota
	// KindValue - malformed value or CDT context/arguments. Encode-time.
	KindValue
	// KindParseAddress - malformed connection target. Encode-time.
	KindParseAddress
	// KindConnection - dial or socket failure. Retryable per policy.
	KindConnection
	// KindTimeout - socket deadline exceeded. Retryable per policy.
	KindTimeout
	// KindTotalTimeout - operation deadline exceeded. Terminal.
	KindTotalTimeout
	// KindBadResponse - malformed or truncated frame. Terminal.
	KindBadResponse
	// KindInvalidUTF8 - non-UTF-8 bytes where a string was declared. Terminal.
	KindInvalidUTF8
	// KindBase64 - undecodable partition bitmap. Terminal.
	KindBase64
	// KindInvalidNode - no node known for a partition. Retryable only after
	// a partition map refresh.
	KindInvalidNode
	// KindNoMoreConnections - pool exhausted within the acquire timeout.
	KindNoMoreConnections
	// KindClientClosed - operation on a closed client or recordset.
	KindClientClosed
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidKey:
		return "InvalidKeyType"
	case KindValue:
		return "ValueError"
	case KindParseAddress:
		return "ParseAddressError"
	case KindConnection:
		return "ConnectionError"
	case KindTimeout:
		return "TimeoutError"
	case KindTotalTimeout:
		return "TotalTimeoutError"
	case KindBadResponse:
		return "BadResponse"
	case KindInvalidUTF8:
		return "InvalidUTF8"
	case KindBase64:
		return "Base64DecodeError"
	case KindInvalidNode:
		return "InvalidNodeError"
	case KindNoMoreConnections:
		return "NoMoreConnections"
	case KindClientClosed:
		return "ClientClosed"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error is the client-side error type. It wraps a Kind, a message and an
// optional underlying cause. errors.Is(err, sentinel) matches on the Kind,
// so callers branch on the exported sentinels below without caring which
// layer produced the error.
type Error struct {
	Kind ErrorKind
	Msg  string
	err  error
}

// Sentinels for errors.Is matching, one per kind.
var (
	ErrInvalidKeyType    = &Error{Kind: KindInvalidKey}
	ErrValue             = &Error{Kind: KindValue}
	ErrParseAddress      = &Error{Kind: KindParseAddress}
	ErrConnection        = &Error{Kind: KindConnection}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrTotalTimeout      = &Error{Kind: KindTotalTimeout}
	ErrBadResponse       = &Error{Kind: KindBadResponse}
	ErrInvalidUTF8       = &Error{Kind: KindInvalidUTF8}
	ErrBase64Decode      = &Error{Kind: KindBase64}
	ErrInvalidNode       = &Error{Kind: KindInvalidNode}
	ErrNoMoreConnections = &Error{Kind: KindNoMoreConnections}
	ErrClientClosed      = &Error{Kind: KindClientClosed}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

// Is matches any *Error of the same kind, making the sentinels usable with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewError creates an Error of the given sentinel's kind.
func NewError(sentinel *Error, msg string) *Error {
	return &Error{Kind: sentinel.Kind, Msg: msg}
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(sentinel *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: sentinel.Kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(sentinel *Error, msg string, err error) *Error {
	return &Error{Kind: sentinel.Kind, Msg: msg, err: err}
}

// --------------------------------------------------------------------------
// Server-reported Errors
// --------------------------------------------------------------------------

// ServerError wraps a non-zero result code from a well-formed server reply.
// It is never retried automatically - it represents a server decision
// (key not found, filtered out, generation mismatch), not a transient
// fault. The numeric code is preserved verbatim for programmatic branching.
type ServerError struct {
	Code ResultCode
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (code %d): %s", int(e.Code), e.Code)
}

// NewServerError creates a ServerError for the given result code.
func NewServerError(code ResultCode) *ServerError {
	return &ServerError{Code: code}
}

// IsServerError reports whether err is a ServerError with the given code.
func IsServerError(err error, code ResultCode) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Code == code
}
