package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/starford/resummarize/internal/models"
)

const defaultOpenAIModel = "gpt-4o"

type openaiBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func newOpenAI(opts Options) *openaiBackend {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openaiBackend{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   opts.MaxOutputTokens,
		temperature: opts.Temperature,
	}
}

func (o *openaiBackend) complete(ctx context.Context, history []Turn, message string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == models.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
