package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// stubClient records calls and returns a canned answer.
type stubClient struct {
	calls  atomic.Int64
	answer string
}

func (s *stubClient) Generate(_ context.Context, _ string, _ GenerationParams) (string, error) {
	s.calls.Add(1)
	return s.answer, nil
}

func (s *stubClient) Chat(_ context.Context, _ []datatypes.Message, _ GenerationParams) (string, error) {
	s.calls.Add(1)
	return s.answer, nil
}

func TestOllamaClient_Chat(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: datatypes.Message{Role: "assistant", Content: "You spent $540.25 on groceries."},
			Done:    true,
		})
	}))
	defer server.Close()

	client := &OllamaClient{
		httpClient: server.Client(),
		baseURL:    server.URL,
		model:      "llama3.1",
	}

	maxTokens := 256
	answer, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "system", Content: "You are a financial advisor."},
		{Role: "user", Content: "How much did I spend on groceries?"},
	}, GenerationParams{MaxTokens: &maxTokens})
	require.NoError(t, err)
	assert.Equal(t, "You spent $540.25 on groceries.", answer)

	assert.Equal(t, "llama3.1", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.EqualValues(t, 256, gotReq.Options["num_predict"])
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3.1' not found"}`))
	}))
	defer server.Close()

	client := &OllamaClient{httpClient: server.Client(), baseURL: server.URL, model: "llama3.1"}

	_, err := client.Generate(context.Background(), "hello", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull")
}

func TestAnthropicClient_Chat(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "Your net this month is $2459.75."}},
		})
	}))
	defer server.Close()

	client := &AnthropicClient{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
		model:      "claude-3-5-sonnet-20240620",
	}

	answer, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "system", Content: "You are a financial advisor."},
		{Role: "user", Content: "What is my net this month?"},
	}, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "Your net this month is $2459.75.", answer)

	// System prompt rides the top-level field, not the message list.
	require.Len(t, gotReq.System, 1)
	assert.Equal(t, "You are a financial advisor.", gotReq.System[0].Text)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client := &AnthropicClient{httpClient: server.Client(), baseURL: server.URL, apiKey: "k", model: "m"}

	_, err := client.Generate(context.Background(), "hello", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRateLimitedClient_PassesThrough(t *testing.T) {
	stub := &stubClient{answer: "ok"}
	client := NewRateLimitedClient(stub, 100, 10)

	answer, err := client.Chat(context.Background(), nil, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestRateLimitedClient_RespectsContext(t *testing.T) {
	stub := &stubClient{answer: "ok"}
	// One token per minute with burst 1: the second call must wait.
	client := NewRateLimitedClient(stub, 1.0/60.0, 1)

	_, err := client.Generate(context.Background(), "first", GenerationParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Generate(ctx, "second", GenerationParams{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, stub.calls.Load(), "blocked call must not reach the backend")
}

func TestRateLimitedClient_DisabledReturnsInner(t *testing.T) {
	stub := &stubClient{answer: "ok"}
	assert.Same(t, LLMClient(stub), NewRateLimitedClient(stub, 0, 0))
}
