package ai

import (
	"errors"
	"fmt"
)

// Sentinel classes for the model transport boundary. The session adapter
// wraps upstream failures with one of these so callers can classify without
// depending on go-openai error types.
var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrModelTimeout     = errors.New("model request timed out")
)

// ErrEmptyPrompt rejects requests with no user instruction.
var ErrEmptyPrompt = errors.New("prompt is required")

// ParseError reports that the model's raw reply could not be interpreted as
// a response envelope. Raw keeps the original text for diagnosis; it is
// logged, never returned to the client.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "malformed model response: " + e.Reason
}

// PolicyError reports a blocked tool call. ChatMessage is the corrective,
// user-facing message; requests failing with this map to forbidden.
type PolicyError struct {
	Tool        string
	ChatMessage string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("tool %q is not permitted", e.Tool)
}

// WriteError reports that the model replied but persisting its content
// failed. ChatResponse carries the model's own message so the user can be
// told both what the model said and that nothing was actually saved.
type WriteError struct {
	Path         string
	ChatResponse string
	Err          error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write content to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
