// Package advice is the narrow interface to the external AI collaborator.
// It only turns an emotion summary into a short supportive comment; all
// conversational understanding stays out of scope.
package advice

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Advisor produces a short comment on a weekly emotion summary.
type Advisor interface {
	Comment(ctx context.Context, summary string) (string, error)
}

const systemPrompt = "You are a supportive mental-health companion. " +
	"Given a short weekly summary of a user's logged emotions, reply with 2-3 " +
	"warm, non-clinical sentences: acknowledge the week and suggest one small, " +
	"concrete self-care step. Never diagnose, never mention being an AI."

// OpenAI implements Advisor on an OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a client. An empty baseURL uses the default endpoint; an
// empty model falls back to a small chat model.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Comment asks the model for a short supportive note on the summary.
func (o *OpenAI) Comment(ctx context.Context, summary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summary},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
