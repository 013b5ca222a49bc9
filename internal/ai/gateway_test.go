package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

func TestNewWithoutKeyIsUnconfigured(t *testing.T) {
	g, err := New(context.Background(), Options{Provider: ProviderGemini})
	require.NoError(t, err)
	assert.False(t, g.Configured())

	_, err = g.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, apperr.ErrAIUnconfigured)
	_, err = g.Chat(context.Background(), nil, "hello")
	assert.ErrorIs(t, err, apperr.ErrAIUnconfigured)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "llama", APIKey: "k"})
	assert.Error(t, err)
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, reply string, status int, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChatSendsHistory(t *testing.T) {
	var seen chatRequest
	srv := fakeOpenAI(t, "**Sure**, noted.", http.StatusOK, &seen)

	g, err := New(context.Background(), Options{
		Provider:      ProviderOpenAI,
		APIKey:        "test",
		BaseURL:       srv.URL + "/v1",
		StripMarkdown: true,
	})
	require.NoError(t, err)
	require.True(t, g.Configured())

	history := []Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleModel, Content: "hello"},
	}
	reply, err := g.Chat(context.Background(), history, "remember milk")
	require.NoError(t, err)
	assert.Equal(t, "Sure, noted.", reply)

	require.Len(t, seen.Messages, 3)
	assert.Equal(t, "user", seen.Messages[0].Role)
	assert.Equal(t, "assistant", seen.Messages[1].Role)
	assert.Equal(t, "remember milk", seen.Messages[2].Content)
	assert.Equal(t, defaultOpenAIModel, seen.Model)
}

func TestUpstreamFailureIsGenerationError(t *testing.T) {
	srv := fakeOpenAI(t, "", http.StatusInternalServerError, nil)
	g, err := New(context.Background(), Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "summarize")
	assert.ErrorIs(t, err, apperr.ErrAIGeneration)
}

func TestEmptyReplyIsGenerationError(t *testing.T) {
	srv := fakeOpenAI(t, "   ", http.StatusOK, nil)
	g, err := New(context.Background(), Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "summarize")
	assert.ErrorIs(t, err, apperr.ErrAIGeneration)
}
