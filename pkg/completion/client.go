// Package completion wraps an OpenAI-compatible chat-completions API.
// The bot treats it as an opaque text service: a persona's content
// goes in as the system message, the rendered conversation as the
// user turn, and whatever comes back is relayed.
package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultTimeout = 120 * time.Second

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	client      openai.Client
	model       string
	temperature float64
	topP        float64
	maxTokens   int
}

// NewClient builds a client against baseURL; an empty baseURL uses
// the OpenAI default.
func NewClient(apiKey, baseURL, model string, temperature, topP float64, maxTokens int) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		topP:        topP,
		maxTokens:   maxTokens,
	}
}

func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			chatMessages[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			chatMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			chatMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    chatMessages,
		Temperature: openai.Float(c.temperature),
		TopP:        openai.Float(c.topP),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return resp.Choices[0].Message.Content, nil
}
