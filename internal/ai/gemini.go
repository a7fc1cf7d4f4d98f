package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model, temperature: 0.2}, nil
}

// NewChat opens a chat session with system as its instruction. The session
// keeps its own history on the client side.
func (g *Gemini) NewChat(ctx context.Context, system string) (Chat, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}
	chat, err := g.client.Chats.Create(ctx, g.model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini chat create failed: %w", err)
	}
	return &geminiChat{chat: chat}, nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (c *geminiChat) Send(ctx context.Context, prompt string) (string, error) {
	res, err := c.chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", mapGeminiError(err)
	}
	return res.Text(), nil
}

func mapGeminiError(err error) error {
	if apiErr, ok := findAPIError(err); ok {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("gemini: %s: %w", apiErr.Message, ErrRateLimited)
		}
		return fmt.Errorf("gemini API call failed (status %d): %w", apiErr.Code, err)
	}
	// Some transports only surface the status text.
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429") {
		return fmt.Errorf("gemini: %v: %w", err, ErrRateLimited)
	}
	return fmt.Errorf("gemini API call failed: %w", err)
}

// findAPIError walks the wrap chain; the SDK has returned APIError both by
// value and by pointer across releases.
func findAPIError(err error) (genai.APIError, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v, true
		case *genai.APIError:
			if v != nil {
				return *v, true
			}
		}
	}
	return genai.APIError{}, false
}
