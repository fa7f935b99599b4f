package openai

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

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

func newTestService(t *testing.T, url string, retries int) *LLMService {
	t.Helper()
	svc, err := NewLLMService(LLMConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		MaxRetries: retries,
		RetryBase:  time.Millisecond,
	})
	require.NoError(t, err)
	return svc
}

func completion(content string) string {
	return `{"choices":[{"message":{"content":"` + content + `"},"finish_reason":"stop"}],` +
		`"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Nil(t, svc.limiter)
	assert.NoError(t, svc.Close())
}

func TestNormaliseBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.studio.nebius.com/v1",
		NormaliseBaseURL("https://api.studio.nebius.com/v1/chat/completions"))
	assert.Equal(t, "https://api.studio.nebius.com/v1",
		NormaliseBaseURL("https://api.studio.nebius.com/v1/"))
	assert.Equal(t, "http://localhost:11434/v1", NormaliseBaseURL("http://localhost:11434/v1"))
}

func TestChat_Success(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion("The value is $450,000.")))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 0)
	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "context"},
		{Role: driven.RoleUser, Content: "What is the value?"},
	}, driven.ChatOptions{MaxTokens: 100, Temperature: 0.7})

	require.NoError(t, err)
	assert.Equal(t, "The value is $450,000.", reply)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "What is the value?", got.Messages[1].Content)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
}

// TestChat_RetriesThrottling tests that 429 and 5xx are retried
func TestChat_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(completion("ok")))
		}
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 3)
	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChat_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 3)
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestChat_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 2)
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 0)
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "no response choices")
}

func TestChat_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(completion("ok")))
	}))
	defer server.Close()

	svc, err := NewLLMService(LLMConfig{
		APIKey:            "k",
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Burst:             1,
	})
	require.NoError(t, err)
	require.NotNil(t, svc.limiter)

	for i := 0; i < 3; i++ {
		_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestChat_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("never")))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(t, server.URL, 3)
	_, err := svc.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, 0)
	assert.NoError(t, svc.Ping(context.Background()))

	bad, err := NewLLMService(LLMConfig{APIKey: "wrong", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Error(t, bad.Ping(context.Background()))
}
