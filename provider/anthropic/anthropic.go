// Package anthropic provides the primary provider.Client backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/provider"
)

// Options configures the Anthropic client adapter (model id, temperature,
// max tokens, API key, per-call deadline). Extend via functional options to
// preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	Timeout     time.Duration
	Variant     provider.Variant
}

// Client wraps the Anthropic Messages API behind the generic provider.Client
// interface.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic client using the official SDK.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Client{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic client from an existing SDK client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		Timeout:     60 * time.Second,
		Variant:     provider.VariantPrimary,
	}
}

// Info implements provider.Client.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: string(c.opts.Model), Variant: c.opts.Variant}
}

func (c *Client) buildParams(req provider.Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}

	maxTokens := c.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := c.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// classify maps SDK errors onto tagged provider failures so the dispatcher
// can decide between retry and fallback.
func (c *Client) classify(err error) error {
	name := string(c.opts.Model)
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if provider.ClassifyStatus(apierr.StatusCode) == provider.FailureTransient {
			return provider.Transient(name, err)
		}
		return provider.Permanent(name, err)
	}
	// Network level failures (connection reset, DNS, deadline) are worth a
	// retry against the same provider.
	return provider.Transient(name, err)
}

// Complete implements provider.Client using the non-streaming Messages API.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.classify(fmt.Errorf("anthropic api error: %w", err))
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return &provider.Response{Text: text, FinishReason: finishReason}, nil
}

// Stream implements provider.Client using the streaming Messages API,
// forwarding text deltas as they arrive.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	chunkCh := make(chan provider.Chunk, 32)
	errCh := make(chan error, 1)

	ctx, cancel := c.withDeadline(ctx)

	go func() {
		defer cancel()
		defer close(chunkCh)
		defer close(errCh)

		stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))
		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case chunkCh <- provider.Chunk{Text: delta.Text}:
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				errCh <- ctx.Err()
				return
			}
			errCh <- c.classify(fmt.Errorf("anthropic streaming error: %w", err))
		}
	}()

	return chunkCh, errCh
}

func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}
