package extraction

import (
	"errors"
	"fmt"
)

// snippetLimit bounds the response text kept in a FormatError
const snippetLimit = 500

// FormatError reports a response that is not JSON or lacks the two
// required top-level fields.
type FormatError struct {
	Reason  string
	Snippet string
	Err     error
}

func newFormatError(reason, text string, err error) *FormatError {
	return &FormatError{Reason: reason, Snippet: truncate(text, snippetLimit), Err: err}
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction format: %s: %v", e.Reason, e.Err)
	}
	return "extraction format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user
func (e *FormatError) UserMessage() string {
	if e.Snippet == "" {
		return "The menu data returned by the extraction service could not be read: " + e.Reason + "."
	}
	return fmt.Sprintf("The menu data returned by the extraction service could not be read: %s. Received: %s", e.Reason, e.Snippet)
}

// Kind classifies upstream failures
type Kind int

const (
	KindGeneric Kind = iota
	KindInvalidCredential
	KindPermissionDenied
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredential:
		return "invalid_credential"
	case KindPermissionDenied:
		return "permission_denied"
	case KindBlocked:
		return "blocked"
	default:
		return "generic"
	}
}

// ServiceError is a failure of the extraction service itself
type ServiceError struct {
	Kind        Kind
	StatusCode  int
	Message     string
	BlockReason string
	Err         error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("extraction service (%s)", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.BlockReason != "" {
		msg += ": blocked: " + e.BlockReason
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user; each Kind reads differently
func (e *ServiceError) UserMessage() string {
	switch e.Kind {
	case KindInvalidCredential:
		return "Extraction service error: the API key is not valid. Please check your API key."
	case KindPermissionDenied:
		return "Extraction service error: permission denied. Check your API key and the model permissions."
	case KindBlocked:
		msg := e.Message
		if msg == "" {
			msg = "No specific message."
		}
		return fmt.Sprintf("The request was blocked by the extraction service. Reason: %s. Message: %s", e.BlockReason, msg)
	default:
		detail := e.Message
		if detail == "" && e.Err != nil {
			detail = e.Err.Error()
		}
		if detail == "" {
			detail = "an unknown error occurred"
		}
		return "Extraction service error: " + detail
	}
}

// ErrMissingCredential is returned before any call when no API key is configured
var ErrMissingCredential = &ServiceError{
	Kind:    KindInvalidCredential,
	Message: "no API key configured",
}

// UserMessage returns the user-facing text for any extraction error
func UserMessage(err error) string {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	if err == nil {
		return ""
	}
	return "An error occurred while converting the menu."
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
