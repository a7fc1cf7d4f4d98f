package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint. The
// conversation history lives in the returned Chat, not on the server.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	if model == "" {
		model = "gpt-4.1-mini"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are owned by the structuring agent
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAI) NewChat(ctx context.Context, system string) (Chat, error) {
	return &openAIChat{
		client:  o.client,
		model:   o.model,
		history: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)},
	}, nil
}

type openAIChat struct {
	client  openai.Client
	model   string
	history []openai.ChatCompletionMessageParamUnion
}

func (c *openAIChat) Send(ctx context.Context, prompt string) (string, error) {
	msgs := append(c.history, openai.UserMessage(prompt))
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	out := resp.Choices[0].Message.Content
	c.history = append(msgs, openai.AssistantMessage(out))
	return out, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("openai: %s: %w", apiErr.Message, ErrRateLimited)
		}
		return fmt.Errorf("openai error (status %d): %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("openai request failed: %w", err)
}
