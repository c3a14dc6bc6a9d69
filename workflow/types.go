// Package workflow orchestrates one durable question-answering run:
// reference data, bounded history, throttled model streaming, and the
// deduplicated failure path.
package workflow

import (
	"context"
)

// Run is the durable unit of execution. The payload is immutable; it is
// created at request admission and carried through every step.
type Run struct {
	// RequestID identifies the inbound request.
	RequestID string
	// Token addresses the delivery sink for this request.
	Token string
	// Message is the user's question.
	Message string
	// InstanceID identifies this workflow execution.
	InstanceID string
}

// ReferenceSource fetches reference data (authenticating internally and
// sharing one token across its sub-resources).
type ReferenceSource interface {
	Load(ctx context.Context) (data, description string, err error)
}

// Sink is the rate-limited delivery channel for one run.
type Sink interface {
	// PostNew creates the working message.
	PostNew(ctx context.Context, content string) error
	// EditExisting replaces the working message's content.
	EditExisting(ctx context.Context, content string) (bool, error)
}

// referenceResult is step 1's checkpointed output.
type referenceResult struct {
	Data        string `json:"data"`
	Description string `json:"description"`
	FromCache   bool   `json:"fromCache"`
}

// streamResult is step 3's checkpointed output.
type streamResult struct {
	FinalText string `json:"finalText"`
	EditCount int    `json:"editCount"`
}
