package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"drawflow-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVisionModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewVisionModel(ctx, config.ModelConfig{})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewVisionModel(ctx, config.ModelConfig{Provider: "mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model provider")

	m, err := NewVisionModel(ctx, config.ModelConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "sk-1234567...", maskKey("sk-1234567890abc"))
	assert.Equal(t, "***", maskKey("abc"))
}

func TestDebugTransportPassesThrough(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: newDebugTransport(nil, true)}
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"model":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestIsSensitiveHeader(t *testing.T) {
	assert.True(t, isSensitiveHeader("Authorization"))
	assert.True(t, isSensitiveHeader("X-API-Key"))
	assert.False(t, isSensitiveHeader("Content-Type"))
}
