package ai

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/starford/resummarize/internal/models"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-6"
	defaultClaudeMaxTokens = 2048
)

type claudeBackend struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func newClaude(opts Options) *claudeBackend {
	var copts []anthropic.ClientOption
	if opts.BaseURL != "" {
		copts = append(copts, anthropic.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = defaultClaudeModel
	}
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &claudeBackend{
		client:    anthropic.NewClient(opts.APIKey, copts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *claudeBackend) complete(ctx context.Context, history []Turn, message string) (string, error) {
	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, t := range history {
		role := anthropic.RoleUser
		if t.Role == models.RoleModel {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(t.Content)},
		})
	}
	messages = append(messages, anthropic.Message{
		Role:    anthropic.RoleUser,
		Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(message)},
	})

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("create messages: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", nil
	}
	return resp.Content[0].GetText(), nil
}
