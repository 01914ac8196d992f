package kernel

import "errors"

var (
	// ErrInvalidInput is returned by Run for an empty message or session id.
	ErrInvalidInput = errors.New("message and session id are required")

	// ErrAgentTimeout is returned when the reasoning engine does not answer
	// within the configured timeout. Callers may retry.
	ErrAgentTimeout = errors.New("reasoning engine timed out")

	// ErrEmptyDecision is returned when the engine answers with no choice.
	ErrEmptyDecision = errors.New("reasoning engine returned no decision")

	// ErrToolFailed wraps tool failures that are not reported back to the
	// engine, such as an unavailable knowledge index.
	ErrToolFailed = errors.New("tool execution failed")
)
