package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/starford/resummarize/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiBackend struct {
	client    *genai.Client
	modelName string
	cfg       *genai.GenerateContentConfig
}

func newGemini(ctx context.Context, opts Options) (*geminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ai: creating gemini client: %w", err)
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	temp := opts.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	}

	return &geminiBackend{client: client, modelName: modelName, cfg: cfg}, nil
}

func (g *geminiBackend) complete(ctx context.Context, history []Turn, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, g.cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return res.Text(), nil
}
