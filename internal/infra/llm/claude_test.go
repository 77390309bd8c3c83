package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/internal/config"
)

func TestNewClaudeProvider(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewClaudeProvider(ClaudeConfig{})
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("defaults the model", func(t *testing.T) {
		p, err := NewClaudeProvider(ClaudeConfig{APIKey: "sk-test"})
		require.NoError(t, err)
		assert.Equal(t, defaultClaudeModel, p.Model())
		assert.Equal(t, "claude", p.Name())
		assert.NoError(t, p.Validate())
	})
}

func TestNewProvider(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewProvider(config.LLMConfig{Provider: "claude"})
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(config.LLMConfig{Provider: "parrot", APIKey: "sk-test"})
		assert.ErrorIs(t, err, ErrInvalidProvider)
	})

	t.Run("claude", func(t *testing.T) {
		p, err := NewProvider(config.LLMConfig{Provider: "claude", APIKey: "sk-test", Model: "claude-sonnet-4-20250514"})
		require.NoError(t, err)
		assert.Equal(t, "claude", p.Name())
	})
}

func TestClaudeProvider_Complete(t *testing.T) {
	var gotReq claudeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := claudeResponse{
			ID:         "msg_1",
			Type:       "message",
			Role:       "assistant",
			Model:      "claude-sonnet-4-20250514",
			StopReason: "end_turn",
			Content: []contentBlock{
				{Type: "text", Text: `{"phases":[]}`},
			},
			Usage: claudeUsage{InputTokens: 120, OutputTokens: 48},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewClaudeProvider(ClaudeConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "You are a project planner.",
		UserPrompt:   "Plan a todo app.",
		MaxTokens:    4096,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"phases":[]}`, resp.Content)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 48, resp.CompletionTokens)
	assert.Equal(t, 168, resp.TotalTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "You are a project planner.", gotReq.System)
	assert.Equal(t, 4096, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestClaudeProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer server.Close()

	p, err := NewClaudeProvider(ClaudeConfig{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}
