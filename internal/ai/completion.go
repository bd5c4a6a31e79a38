package ai

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a runtime answers without content.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer adapts a Runtime to single-prompt text completion.
type Completer struct {
	rt          Runtime
	model       string
	maxTokens   int
	temperature float64
	system      string
}

// CompleterOption configures a Completer.
type CompleterOption func(*Completer)

// WithMaxTokens caps the completion length; 0 leaves it to the provider.
func WithMaxTokens(n int) CompleterOption { return func(c *Completer) { c.maxTokens = n } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompleterOption { return func(c *Completer) { c.temperature = t } }

// WithSystemPrompt prepends a system message to every call.
func WithSystemPrompt(s string) CompleterOption { return func(c *Completer) { c.system = s } }

// NewCompleter binds rt to a model.
func NewCompleter(rt Runtime, model string, opts ...CompleterOption) *Completer {
	c := &Completer{rt: rt, model: model}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the bound model name.
func (c *Completer) Model() string { return c.model }

// Complete sends prompt as one user message and returns the reply text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.rt == nil {
		return "", errors.New("no text-generation runtime configured")
	}
	var msgs []Message
	if c.system != "" {
		msgs = append(msgs, Message{Role: "system", Content: c.system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})
	resp, err := c.rt.Generate(ctx, GenerateRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
