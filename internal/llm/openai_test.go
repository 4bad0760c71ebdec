package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that OpenAIProvider implements Provider.
var _ Provider = (*OpenAIProvider)(nil)

// newOpenAITestServer creates an httptest server that responds with the given handler.
func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// newOpenAITestProvider creates an OpenAIProvider configured to use the test server.
func newOpenAITestProvider(t *testing.T, serverURL string) *OpenAIProvider {
	t.Helper()
	cfg := OpenAIConfig{
		APIKey:  "test-api-key",
		Model:   "gpt-4o",
		BaseURL: serverURL,
	}
	return NewOpenAIProvider(cfg, 0.2, 10*time.Second)
}

func writeChatResponse(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := chatResponse{
		ID: "chatcmpl-abc123",
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Run("successful call returns content and usage", func(t *testing.T) {
		var receivedReq chatRequest
		var receivedAuthHeader string

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			receivedAuthHeader = r.Header.Get("Authorization")
			assert.Equal(t, "/chat/completions", r.URL.Path)

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			writeChatResponse(t, w, `{"summary":"Printer paper jam issue"}`)
		})

		provider := newOpenAITestProvider(t, server.URL)
		resp, err := provider.Complete(context.Background(), CompletionRequest{
			SystemPrompt: "system text",
			UserPrompt:   "user text",
			JSONMode:     true,
		})

		require.NoError(t, err)
		assert.Equal(t, `{"summary":"Printer paper jam issue"}`, resp.Content)
		assert.Equal(t, "gpt-4o", resp.Model)
		assert.Equal(t, 120, resp.InputTokens)
		assert.Equal(t, 40, resp.OutputTokens)

		assert.Equal(t, "Bearer test-api-key", receivedAuthHeader)
		assert.Equal(t, "gpt-4o", receivedReq.Model)
		assert.Equal(t, 0.2, receivedReq.Temperature)
		assert.Equal(t, defaultOpenAIMaxTokens, receivedReq.MaxTokens)
		require.NotNil(t, receivedReq.ResponseFormat)
		assert.Equal(t, "json_object", receivedReq.ResponseFormat.Type)
		require.Len(t, receivedReq.Messages, 2)
		assert.Equal(t, "system", receivedReq.Messages[0].Role)
		assert.Equal(t, "user text", receivedReq.Messages[1].Content)
	})

	t.Run("json mode off omits response format", func(t *testing.T) {
		var receivedReq chatRequest
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&receivedReq))
			writeChatResponse(t, w, "hello")
		})

		_, err := newOpenAITestProvider(t, server.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		require.NoError(t, err)
		assert.Nil(t, receivedReq.ResponseFormat)
	})

	t.Run("API error is parsed", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
		})

		_, err := newOpenAITestProvider(t, server.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "openai", apiErr.Provider)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "Rate limit reached", apiErr.Message)
		assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
		assert.True(t, apiErr.IsTransient())
	})

	t.Run("non-JSON error body is kept verbatim", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway"))
		})

		_, err := newOpenAITestProvider(t, server.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "bad gateway", apiErr.Message)
	})

	t.Run("empty choices is an empty response", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		})

		_, err := newOpenAITestProvider(t, server.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errEmptyResponse)
	})

	t.Run("context cancellation stops request", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newOpenAITestProvider(t, server.URL).Complete(ctx, CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)
		assert.True(t, isTransientError(err))
	})
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: "http://example.com/v1/"}, 0.2, 0)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, defaultOpenAIModel, p.Model())
	assert.Equal(t, "http://example.com/v1", p.baseURL)
	assert.Equal(t, 60*time.Second, p.httpClient.Timeout)

	p = NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, 0.2, time.Second)
	assert.Equal(t, defaultOpenAIBaseURL, p.baseURL)
}
