// Package ai adapts hosted language-model chat services to the small
// conversational surface the structuring agent needs.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited marks a failure caused by a quota or rate-limit signal from
// the chat service. Callers test for it with errors.Is.
var ErrRateLimited = errors.New("rate limited")

// Chat is one ephemeral conversation. Its history is never authoritative:
// callers may drop a Chat at any time and start over.
type Chat interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Provider opens new conversations.
type Provider interface {
	NewChat(ctx context.Context, system string) (Chat, error)
}

// Options selects and configures a Provider.
type Options struct {
	Provider string // gemini|openai
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the provider named by opts.Provider.
func New(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "gemini":
		return NewGemini(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
