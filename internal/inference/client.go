package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrUnavailable is returned for every failure to obtain a completion:
// transport errors, timeouts, non-2xx responses and malformed bodies alike.
var ErrUnavailable = errors.New("inference endpoint unavailable")

// Completion is a single assistant reply.
type Completion struct {
	Content string
	Tokens  int // completion tokens reported by the endpoint, 0 if absent
}

// Completer produces an assistant reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []llms.MessageContent) (*Completion, error)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Model       string
	Token       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint such as a
// local LM Studio server.
type Client struct {
	llm    llms.Model
	opts   Options
	logger *slog.Logger
}

// NewClient builds a Client. It does not contact the endpoint.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Token == "" {
		// The OpenAI client insists on a token; local servers ignore it.
		opts.Token = "lm-studio"
	}
	llm, err := openai.New(
		openai.WithToken(opts.Token),
		openai.WithBaseURL(opts.BaseURL),
		openai.WithModel(opts.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create inference client: %w", err)
	}
	return &Client{llm: llm, opts: opts, logger: logger}, nil
}

// Complete sends messages and returns the first choice. The call is bounded
// by the configured timeout.
func (c *Client) Complete(ctx context.Context, messages []llms.MessageContent) (*Completion, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(c.opts.Temperature),
		llms.WithMaxTokens(c.opts.MaxTokens),
	)
	if err != nil {
		c.logger.Error("inference request failed",
			"base_url", c.opts.BaseURL,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, ErrUnavailable
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("inference response had no choices", "base_url", c.opts.BaseURL)
		return nil, ErrUnavailable
	}

	choice := resp.Choices[0]
	out := &Completion{
		Content: choice.Content,
		Tokens:  intFromInfo(choice.GenerationInfo, "CompletionTokens"),
	}
	c.logger.Debug("inference completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"tokens", out.Tokens,
	)
	return out, nil
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
