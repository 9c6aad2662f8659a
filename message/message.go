// Package message defines the envelopes exchanged over a method channel.
//
// A MethodCall travels from the calling runtime to the host, a MethodResult travels
// back. Both get serialized by the codec layer and wrapped in a protocol frame.
package message

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// MethodCall carries a single invocation on a named channel.
type MethodCall struct {
	Channel   string // Channel name, e.g. "com.example.app/sdk"
	Method    string // Method name, matched exactly by the channel handler
	Arguments []byte // JSON encoded arguments, may be empty
}

// Status tags the outcome of a call.
type Status byte

const (
	StatusSuccess        Status = 0
	StatusError          Status = 1
	StatusNotImplemented Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// Error codes produced by the channel runtime itself.
const (
	CodeUnavailable = "UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL"
	CodeBadRequest  = "BAD_REQUEST"
)

// MethodResult is the tagged outcome of a MethodCall.
//
//   - Success:        Value holds the JSON encoded return value.
//   - Error:          ErrorCode, ErrorMessage and optionally ErrorDetails are set.
//   - NotImplemented: every other field is empty.
type MethodResult struct {
	Status       Status
	Value        []byte
	ErrorCode    string
	ErrorMessage string
	ErrorDetails []byte
}

// Success builds a successful result carrying v encoded as JSON.
func Success(v any) *MethodResult {
	data, err := json.Marshal(v)
	if err != nil {
		return Error(CodeInternal, errors.Wrap(err, "encode result value").Error(), nil)
	}
	return &MethodResult{Status: StatusSuccess, Value: data}
}

// Error builds an error result. details may be nil.
func Error(code, msg string, details []byte) *MethodResult {
	return &MethodResult{
		Status:       StatusError,
		ErrorCode:    code,
		ErrorMessage: msg,
		ErrorDetails: details,
	}
}

// NotImplemented builds the result for a method the handler does not know.
func NotImplemented() *MethodResult {
	return &MethodResult{Status: StatusNotImplemented}
}

// IsRetryable reports whether the result is a transient runtime failure.
func (r *MethodResult) IsRetryable() bool {
	return r.Status == StatusError && (r.ErrorCode == CodeUnavailable || r.ErrorCode == CodeTimeout)
}
