// Package llm wraps the chat-completion client the patch proposer
// talks to. Any OpenAI-compatible endpoint works; the base URL, model
// and call budget come from configuration.
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/logger"
)

// ChatClient is the surface the proposer depends on. Tests substitute
// a scripted implementation.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Client calls a chat-completion endpoint with a bounded per-call
// timeout.
type Client struct {
	client *openai.Client
	cfg    config.LLMConfig
	log    *logger.Logger
}

// New creates a chat client from config
func New(cfg config.LLMConfig, log *logger.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    log,
	}
}

// Chat sends one system+user exchange and returns the raw completion
// text. The call is cut off at the configured timeout.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Error("chat completion failed", "model", c.cfg.Model, "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.log.Debug("chat completion",
		"model", c.cfg.Model,
		"finish_reason", resp.Choices[0].FinishReason,
	)
	return resp.Choices[0].Message.Content, nil
}
