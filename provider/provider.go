// Package provider defines the boundary to external model-serving endpoints.
// Each concrete client (primary, fallback, local) normalizes timeouts and
// reports failures as tagged outcomes (transient vs. permanent) rather than
// raw transport errors, so the dispatcher's retry classification stays
// provider-agnostic.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyarch/tutorflow/core"
)

// Variant identifies a client's position in the fallback order.
type Variant string

const (
	// VariantPrimary is the preferred provider.
	VariantPrimary Variant = "primary"
	// VariantFallback is the backup provider.
	VariantFallback Variant = "fallback"
	// VariantLocal is the deterministic in-process provider.
	VariantLocal Variant = "local"
)

// Request captures the normalized model input produced by graph nodes.
type Request struct {
	System      string         `json:"system,omitempty"`
	Messages    []core.Message `json:"messages"`
	MaxTokens   int64          `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
}

// Response is the complete output of a non-streaming call.
type Response struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Chunk is one incrementally produced piece of streaming output.
type Chunk struct {
	Text string `json:"text"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Name    string  `json:"name"`
	Variant Variant `json:"variant"`
}

// Client is the minimal interface required to drive generation. Both methods
// honor context cancellation and the client's configured hard deadline.
// Stream closes its chunk channel on completion; at most one error is sent
// on the error channel before both are closed.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the client implementation.
	Info() Info
}

// FailureClass tags a provider failure for the dispatcher's retry decision.
type FailureClass string

const (
	// FailureTransient marks failures worth retrying (timeout, rate limit,
	// 5xx-equivalent).
	FailureTransient FailureClass = "transient"
	// FailurePermanent marks failures where retrying the same provider is
	// pointless (bad request, auth).
	FailurePermanent FailureClass = "permanent"
)

// Failure is the tagged outcome every client reports instead of raw
// transport errors.
type Failure struct {
	Class    FailureClass
	Provider string
	Err      error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s provider failure (%s): %v", f.Class, f.Provider, f.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (f *Failure) Unwrap() error { return f.Err }

// Transient wraps err as a retryable failure of the named provider.
func Transient(providerName string, err error) error {
	return &Failure{Class: FailureTransient, Provider: providerName, Err: err}
}

// Permanent wraps err as a non-retryable failure of the named provider.
func Permanent(providerName string, err error) error {
	return &Failure{Class: FailurePermanent, Provider: providerName, Err: err}
}

// IsTransient reports whether err carries a transient failure tag.
// Untagged errors are treated as permanent; cancellation is neither.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Class == FailureTransient
	}
	// Deadline expiry without a tag still counts as a timeout.
	return errors.Is(err, context.DeadlineExceeded)
}

// ClassifyStatus maps an HTTP status code to a failure class: 408, 429 and
// 5xx are transient, everything else permanent.
func ClassifyStatus(code int) FailureClass {
	if code == 408 || code == 429 || code >= 500 {
		return FailureTransient
	}
	return FailurePermanent
}

// AttemptOutcome describes how a single provider call ended.
type AttemptOutcome string

const (
	// OutcomeSuccess means the call returned a usable response.
	OutcomeSuccess AttemptOutcome = "success"
	// OutcomeTimeout means the call exceeded its deadline.
	OutcomeTimeout AttemptOutcome = "timeout"
	// OutcomeError means the call failed for another reason.
	OutcomeError AttemptOutcome = "error"
)

// Attempt records one provider call for backoff decisions and logging. It is
// ephemeral: attempts live only in dispatcher results and exhausted errors.
type Attempt struct {
	Provider string         `json:"provider"`
	Number   int            `json:"number"`
	Outcome  AttemptOutcome `json:"outcome"`
	Latency  time.Duration  `json:"latency"`
	Err      error          `json:"-"`
}
