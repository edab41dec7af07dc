// Package dispatch routes model calls across an ordered chain of providers
// with retry, exponential backoff and fallback. Transient failures retry the
// same provider up to a per-provider attempt budget before moving down the
// chain; permanent failures skip straight to the next provider. Streaming
// calls fail over only until the first chunk has been delivered: once output
// reaches the caller a failure surfaces as an error rather than a silent
// restart with duplicated text.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studyarch/tutorflow/logging"
	"github.com/studyarch/tutorflow/provider"
)

// Options configures retry and backoff behavior.
type Options struct {
	// MaxAttempts is the per-provider attempt budget (first try included).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between retries.
	BaseDelay time.Duration
	// MaxDelay caps the backoff before jitter.
	MaxDelay time.Duration
	// JitterFraction is the maximum random fraction added on top of the
	// capped delay.
	JitterFraction float64
	// Logger receives per-attempt records.
	Logger logging.Logger
}

// Dispatcher fans requests over its provider chain in order.
type Dispatcher struct {
	providers []provider.Client
	opts      Options
}

// New constructs a Dispatcher over an ordered provider chain.
func New(providers []provider.Client, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterFraction: 0.2,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Dispatcher{providers: providers, opts: opts}
}

// Providers returns the configured chain in fallback order.
func (d *Dispatcher) Providers() []provider.Client {
	return append([]provider.Client(nil), d.providers...)
}

// Result is a completed response together with the attempts it took.
type Result struct {
	Response *provider.Response
	Provider provider.Info
	Attempts []provider.Attempt
}

// ExhaustedError reports that every provider in the chain failed. It carries
// the full attempt history for diagnostics.
type ExhaustedError struct {
	Attempts []provider.Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	seen := map[string]bool{}
	for _, a := range e.Attempts {
		if !seen[a.Provider] {
			seen[a.Provider] = true
			names = append(names, a.Provider)
		}
	}
	return fmt.Sprintf("all providers exhausted after %d attempts (%s)",
		len(e.Attempts), strings.Join(names, ", "))
}

// Unwrap exposes the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

func outcome(err error) provider.AttemptOutcome {
	switch {
	case err == nil:
		return provider.OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return provider.OutcomeTimeout
	default:
		return provider.OutcomeError
	}
}

// sleep waits for the backoff delay or until ctx is cancelled.
func (d *Dispatcher) sleep(ctx context.Context, attempt int) error {
	delay := backoffDelay(d.opts.BaseDelay, d.opts.MaxDelay, d.opts.JitterFraction, attempt)
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Complete runs a non-streaming request through the chain. On success the
// result includes the attempt history; on total failure the error is an
// *ExhaustedError unless the context was cancelled first.
func (d *Dispatcher) Complete(ctx context.Context, req provider.Request) (*Result, error) {
	var attempts []provider.Attempt

	for _, client := range d.providers {
		info := client.Info()
		for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			resp, err := client.Complete(ctx, req)
			latency := time.Since(start)
			d.opts.Logger.Debug("provider %s attempt %d finished in %s (err: %v)",
				info.Name, attempt+1, latency, err)

			attempts = append(attempts, provider.Attempt{
				Provider: info.Name,
				Number:   attempt + 1,
				Outcome:  outcome(err),
				Latency:  latency,
				Err:      err,
			})

			if err == nil {
				return &Result{Response: resp, Provider: info, Attempts: attempts}, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !provider.IsTransient(err) {
				// Permanent: retrying this provider is pointless.
				break
			}
			if attempt < d.opts.MaxAttempts-1 {
				if serr := d.sleep(ctx, attempt); serr != nil {
					return nil, serr
				}
			}
		}
	}
	return nil, &ExhaustedError{Attempts: attempts}
}

// Stream runs a streaming request through the chain. Retry and fallback
// apply only while no chunk has been delivered; after first output a failure
// is surfaced on the error channel as-is.
func (d *Dispatcher) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	out := make(chan provider.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var attempts []provider.Attempt

		for _, client := range d.providers {
			info := client.Info()
			for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}

				start := time.Now()
				delivered, err := d.forward(ctx, client, req, out)
				latency := time.Since(start)
				d.opts.Logger.Debug("provider %s stream attempt %d ended in %s (delivered=%t, err: %v)",
					info.Name, attempt+1, latency, delivered, err)

				attempts = append(attempts, provider.Attempt{
					Provider: info.Name,
					Number:   attempt + 1,
					Outcome:  outcome(err),
					Latency:  latency,
					Err:      err,
				})

				if err == nil {
					return
				}
				if ctx.Err() != nil {
					errCh <- ctx.Err()
					return
				}
				if delivered {
					// Output already reached the caller; a transparent
					// restart would duplicate text.
					errCh <- err
					return
				}
				if !provider.IsTransient(err) {
					break
				}
				if attempt < d.opts.MaxAttempts-1 {
					if serr := d.sleep(ctx, attempt); serr != nil {
						errCh <- serr
						return
					}
				}
			}
		}
		errCh <- &ExhaustedError{Attempts: attempts}
	}()

	return out, errCh
}

// forward drains one provider stream into out, reporting whether any chunk
// was delivered before the stream ended.
func (d *Dispatcher) forward(ctx context.Context, client provider.Client, req provider.Request, out chan<- provider.Chunk) (bool, error) {
	chunks, errs := client.Stream(ctx, req)
	delivered := false
	for c := range chunks {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case out <- c:
			delivered = true
		}
	}
	if err := <-errs; err != nil {
		return delivered, err
	}
	return delivered, nil
}
