package idm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies every failure a Client operation can return.
type Kind string

const (
	// KindInvalidInput is malformed caller input, detected before any request is sent.
	KindInvalidInput Kind = "invalid input"
	// KindAuth is a rejected credential exchange or an authorization failure.
	KindAuth Kind = "auth"
	// KindNotFound means the target resource does not exist or was deleted.
	KindNotFound Kind = "not found"
	// KindValidation means the service rejected the request semantically.
	KindValidation Kind = "validation"
	// KindServer is a 5xx response. Considered transient.
	KindServer Kind = "server"
	// KindTransport is a connection or timeout failure. Considered transient.
	KindTransport Kind = "transport"
	// KindDecode means a response body did not have the expected shape.
	KindDecode Kind = "decode"
)

// Error is the single error type returned by idm clients.
//
// Use errors.Is against the Err* sentinels, or the Is* helpers, to branch on
// the kind. Errors returned by the clients are wrapped with operation context,
// so always match with errors.Is / errors.As rather than a type switch.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	// Messages are the details reported by the service, if any.
	Messages []string
	// Resource and ID identify the target of a not-found error.
	Resource string
	ID       string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}

	if e.Resource != "" {
		fmt.Fprintf(&b, ": %s", e.Resource)

		if e.ID != "" {
			fmt.Fprintf(&b, " %s", e.ID)
		}
	}

	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrAuth         = &Error{Kind: KindAuth}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrServer       = &Error{Kind: KindServer}
	ErrTransport    = &Error{Kind: KindTransport}
	ErrDecode       = &Error{Kind: KindDecode}
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrClientIDRequired    = errors.New("client ID is required")
	ErrSecretRequired      = errors.New("secret is required")
	ErrEmptyMetadataKey    = errors.New("metadata key must not be empty")
	ErrMetadataNotObject   = errors.New("metadata is not an object")
	ErrUnsupportedMetadata = errors.New("unsupported metadata value")
	ErrTrailingData        = errors.New("unexpected data after JSON value")
	ErrMissingField        = errors.New("missing required field")
	ErrIteratorExhausted   = errors.New("no more items")
	ErrUnexpectedStatus    = errors.New("unexpected response status")
)

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsInvalidInput reports whether err is a local input error.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsAuth reports whether err is an authentication or authorization error.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is a service-side validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsServer reports whether err is a 5xx error.
func IsServer(err error) bool { return errors.Is(err, ErrServer) }

// IsTransport reports whether err is a connection or timeout error.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsDecode reports whether err is a response decoding error.
func IsDecode(err error) bool { return errors.Is(err, ErrDecode) }

// IsRetryable reports whether err is transient: a server or transport error.
// The client never retries these on its own unless configured to.
func IsRetryable(err error) bool {
	return IsServer(err) || IsTransport(err)
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

// TransportError wraps a network-level failure.
func TransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// DecodeError wraps a response body that could not be decoded.
func DecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}

// NotFound builds a KindNotFound error for resource id.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, StatusCode: http.StatusNotFound, Resource: resource, ID: id}
}

// errorBody is the shape of error responses from the vendor API.
type errorBody struct {
	Message *string  `json:"message"`
	Errors  []string `json:"errors"`
}

// ParseErrorMessages extracts service-provided messages from an error body.
// It returns nil if the body has no recognisable messages.
func ParseErrorMessages(body []byte) []string {
	if len(body) == 0 {
		return nil
	}

	var eb errorBody

	err := json.Unmarshal(body, &eb)
	if err != nil {
		return []string{"unable to decode error details"}
	}

	messages := append([]string(nil), eb.Errors...)
	if eb.Message != nil && *eb.Message != "" {
		messages = append(messages, *eb.Message)
	}

	return messages
}

// Classify maps a non-2xx response to an *Error.
// resource and id name the target of the request and are only kept for 404s.
func Classify(statusCode int, body []byte, resource, id string) *Error {
	e := &Error{
		StatusCode: statusCode,
		Messages:   ParseErrorMessages(body),
	}

	switch {
	case statusCode == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Resource = resource
		e.ID = id
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Kind = KindAuth
	case statusCode >= 400 && statusCode < 500:
		e.Kind = KindValidation
	case statusCode >= 500:
		e.Kind = KindServer
	default:
		// 1xx/3xx are not followed and are not expected from the API.
		e.Kind = KindDecode
		e.Err = ErrUnexpectedStatus
	}

	return e
}
