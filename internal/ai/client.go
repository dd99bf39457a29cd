package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"github.com/myrjola/portrait/internal/contexthelpers"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"strconv"
	"strings"
)

// Completer turns a system and user prompt pair into prose.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is a Completer backed by an OpenAI compatible chat completion API.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewClient creates a Client. An empty baseURL targets the OpenAI API.
func NewClient(apiKey, baseURL, model string, maxTokens int) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: maxTokens,
	}
}

// endUser identifies the respondent to the provider for abuse monitoring without revealing the chat id.
func endUser(ctx context.Context) string {
	id, ok := contexthelpers.RespondentID(ctx)
	if !ok {
		return ""
	}
	sum := sha256.Sum256([]byte(strconv.FormatInt(id, 10)))
	return hex.EncodeToString(sum[:8])
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: c.maxTokens,
			User:      endUser(ctx),
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty chat completion", slog.String("model", c.model))
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("blank chat completion", slog.String("model", c.model))
	}
	return text, nil
}
