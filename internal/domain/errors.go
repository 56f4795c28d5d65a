package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDuplicate    = errors.New("duplicate record")
	// ErrAuth matches every credential failure: a missing key as well as a
	// provider that rejected the key with 401/403.
	ErrAuth = errors.New("provider credential rejected or missing")
)

// AuthError reports a missing or unusable provider credential. It is raised
// before any request leaves the process.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "auth: provider credential missing"
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// TransportError wraps network, DNS and connection failures, and non-success
// statuses on unauthenticated downloads.
type TransportError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport: ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseFormatError reports a body that is not JSON or lacks the expected
// shape. HTMLChallenge is set when the provider answered with an HTML page,
// typically an anti-bot challenge in front of the API.
type ResponseFormatError struct {
	Op            string
	ContentType   string
	Body          string
	HTMLChallenge bool
	Err           error
}

func (e *ResponseFormatError) Error() string {
	if e.HTMLChallenge {
		return fmt.Sprintf("%s: unexpected HTML from provider (content-type %q): %s", e.Op, e.ContentType, e.Body)
	}
	msg := fmt.Sprintf("%s: unexpected response format", e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

// ProviderRejectedError carries a non-success HTTP status and the provider's detail.
type ProviderRejectedError struct {
	Op      string
	Status  int
	Message string
	Hints   []string
}

func (e *ProviderRejectedError) Error() string {
	msg := fmt.Sprintf("%s: provider request failed (%d): %s", e.Op, e.Status, e.Message)
	if len(e.Hints) > 0 {
		msg += ". Hints: " + strings.Join(e.Hints, " ")
	}
	return msg
}

func (e *ProviderRejectedError) Unwrap() error {
	if e.Status == 401 || e.Status == 403 {
		return ErrAuth
	}
	return nil
}

// GenerationFailedError is returned when the provider reports a terminal
// FAILED or CANCELLED job.
type GenerationFailedError struct {
	JobID  string
	Status string
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation %s failed with status: %s", e.JobID, e.Status)
}

// PollTimeoutError is a local timeout; the remote job may still be running.
type PollTimeoutError struct {
	JobID    string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("generation %s: polling ended without COMPLETE status after %d attempts", e.JobID, e.Attempts)
}

type UnknownStoryError struct {
	Key string
}

func (e *UnknownStoryError) Error() string {
	return fmt.Sprintf("unknown story key: %s", e.Key)
}

// UnresolvedModelError reports a preset whose required field is empty or still a placeholder.
type UnresolvedModelError struct {
	Key   string
	Field string
}

func (e *UnresolvedModelError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("no valid %s configured", e.Field)
	}
	return fmt.Sprintf("preset %q has no valid %s", e.Key, e.Field)
}

type EmptyDocumentError struct{}

func (e *EmptyDocumentError) Error() string { return "no pages rendered" }

// IsPlaceholder reports values that were never filled in by the operator.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(v, "<") || strings.HasPrefix(strings.ToUpper(v), "REPLACE_WITH")
}

// InvalidRequestError is a request-construction error caught before sending.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid generation request: %s %s", e.Field, e.Reason)
}
