package openaillm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIProviderWithConfig(cfg, "gpt-4o-mini")
}

func TestDefaultClientConfigSetsTimeout(t *testing.T) {
	cfg := defaultClientConfig("test-key")

	client, ok := cfg.HTTPClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, requestTimeout, client.Timeout)
}

func TestChatMapsBackendStatusToStatusError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)

	var st *llm.StatusError
	require.True(t, errors.As(err, &st))
	assert.Equal(t, http.StatusTooManyRequests, st.StatusCode)
	assert.True(t, st.Transient())
}

func TestChatTranslatesModelRole(t *testing.T) {
	var gotRole string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Messages) > 0 {
			gotRole = req.Messages[0].Role
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	out, err := p.Chat(context.Background(), []llm.Message{{Role: "model", Content: "prior turn"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, openai.ChatMessageRoleAssistant, gotRole)
}
