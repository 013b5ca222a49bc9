// Package ai is the gateway to the hosted language model. It offers two
// calls, single-shot generation and multi-turn chat, over one of several
// providers.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role    models.ChatRole
	Content string
}

// TurnsFromMessages converts a transcript into gateway turns.
func TurnsFromMessages(msgs []models.ChatMessage) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Content: m.Content})
	}
	return out
}

// Gateway generates text from prompts.
type Gateway interface {
	// Configured reports whether a provider credential is present.
	Configured() bool
	// Generate returns the model's reply to a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Chat returns the model's reply to message given prior history.
	Chat(ctx context.Context, history []Turn, message string) (string, error)
}

// Options selects and tunes a provider.
type Options struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
	Temperature     float32
	StripMarkdown   bool
}

// backend is the per-provider part of a gateway.
type backend interface {
	complete(ctx context.Context, history []Turn, message string) (string, error)
}

// New builds the gateway for opts. Without an API key the returned gateway
// is unconfigured and every call fails with apperr.ErrAIUnconfigured.
func New(ctx context.Context, opts Options) (Gateway, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return Unconfigured{}, nil
	}
	var (
		b   backend
		err error
	)
	switch opts.Provider {
	case ProviderGemini, "":
		b, err = newGemini(ctx, opts)
	case ProviderClaude:
		b = newClaude(opts)
	case ProviderOpenAI:
		b = newOpenAI(opts)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &gateway{backend: b, provider: opts.Provider, strip: opts.StripMarkdown}, nil
}

type gateway struct {
	backend  backend
	provider string
	strip    bool
}

func (g *gateway) Configured() bool { return true }

func (g *gateway) Generate(ctx context.Context, prompt string) (string, error) {
	return g.Chat(ctx, nil, prompt)
}

func (g *gateway) Chat(ctx context.Context, history []Turn, message string) (string, error) {
	text, err := g.backend.complete(ctx, history, message)
	if err != nil {
		return "", fmt.Errorf("ai: %s: %w: %w", g.provider, apperr.ErrAIGeneration, err)
	}
	if g.strip {
		text = PlainText(text)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ai: %s returned empty text: %w", g.provider, apperr.ErrAIGeneration)
	}
	return text, nil
}

// Unconfigured is the gateway used when no credential is available.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", apperr.ErrAIUnconfigured
}

func (Unconfigured) Chat(context.Context, []Turn, string) (string, error) {
	return "", apperr.ErrAIUnconfigured
}
