package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Local is a deterministic in-process Client useful for tests, examples and
// offline development. Responses are canned per prompt; unknown prompts get a
// synthesized echo. Failures can be scripted to exercise retry and fallback
// paths.
type Local struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	failures  []error
	calls     int
}

// NewLocal constructs a Local client.
func NewLocal(name string) *Local {
	return &Local{
		info:      Info{Name: name, Variant: VariantLocal},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (l *Local) AddResponse(prompt, response string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses[prompt] = response
}

// FailNext queues errors returned by upcoming calls before any canned
// response is consulted. Each queued error is consumed by one call.
func (l *Local) FailNext(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, errs...)
}

// Calls returns how many Complete/Stream invocations have been made.
func (l *Local) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Info implements Client.
func (l *Local) Info() Info { return l.info }

func (l *Local) next(req Request) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if len(l.failures) > 0 {
		err := l.failures[0]
		l.failures = l.failures[1:]
		return "", err
	}
	if len(req.Messages) == 0 {
		return "", Permanent(l.info.Name, fmt.Errorf("no messages provided"))
	}
	prompt := req.Messages[len(req.Messages)-1].Text
	if resp, ok := l.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Local response to: %s", prompt), nil
}

// Complete implements Client.
func (l *Local) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := l.next(req)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, FinishReason: "stop"}, nil
}

// Stream implements Client; emits the canned response word by word.
func (l *Local) Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunkCh := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	text, err := l.next(req)
	if err != nil {
		errCh <- err
		close(chunkCh)
		close(errCh)
		return chunkCh, errCh
	}

	go func() {
		defer close(chunkCh)
		defer close(errCh)
		words := strings.Fields(text)
		for i, w := range words {
			if i < len(words)-1 {
				w += " "
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case chunkCh <- Chunk{Text: w}:
			}
		}
	}()
	return chunkCh, errCh
}
