// Package openai provides the fallback provider.Client backed by the OpenAI
// Chat Completions API (including streaming). It adapts the normalized
// Request/Response structures into the SDK's message format and back.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/provider"
)

// Options configure the OpenAI client adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	Timeout             time.Duration
	Variant             provider.Variant
}

// Client wraps the OpenAI Chat Completions API behind the generic
// provider.Client interface.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI client using the official SDK.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return &Client{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI client from an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Timeout:             60 * time.Second,
		Variant:             provider.VariantFallback,
	}
}

// Info implements provider.Client.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: c.opts.Model, Variant: c.opts.Variant}
}

func (c *Client) buildParams(req provider.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Text))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Text))
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}

	maxTokens := c.opts.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := c.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

func (c *Client) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if provider.ClassifyStatus(apierr.StatusCode) == provider.FailureTransient {
			return provider.Transient(c.opts.Model, err)
		}
		return provider.Permanent(c.opts.Model, err)
	}
	return provider.Transient(c.opts.Model, err)
}

// Complete implements provider.Client using a non-streaming completion.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.classify(fmt.Errorf("openai api error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, provider.Permanent(c.opts.Model, fmt.Errorf("no choices returned"))
	}

	ch0 := resp.Choices[0]
	return &provider.Response{Text: ch0.Message.Content, FinishReason: ch0.FinishReason}, nil
}

// Stream implements provider.Client, forwarding content deltas as they
// arrive.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	chunkCh := make(chan provider.Chunk, 32)
	errCh := make(chan error, 1)

	ctx, cancel := c.withDeadline(ctx)

	go func() {
		defer cancel()
		defer close(chunkCh)
		defer close(errCh)

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(req))
		for stream.Next() {
			ck := stream.Current()
			for _, choice := range ck.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case chunkCh <- provider.Chunk{Text: choice.Delta.Content}:
				}
			}
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				errCh <- ctx.Err()
				return
			}
			errCh <- c.classify(fmt.Errorf("openai streaming error: %w", err))
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
