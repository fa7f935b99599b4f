// Package openai provides an LLM service adapter for OpenAI-compatible
// chat completion APIs such as Nebius AI Studio.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
	"github.com/apeko/appraisal-rag/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = domain.DefaultLLMBaseURL
	DefaultLLMModel   = domain.DefaultLLMModel
	DefaultLLMTimeout = 120 * time.Second
	DefaultRetryBase  = 500 * time.Millisecond
	DefaultBurst      = 2
)

// LLMConfig holds configuration for the LLM service.
type LLMConfig struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL. A trailing /chat/completions is stripped.
	BaseURL string

	// Model is the LLM model to use.
	Model string

	// Timeout is the per-request timeout (default: 120s).
	Timeout time.Duration

	// RequestsPerSecond paces outbound requests. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once (default: 2).
	Burst int

	// MaxRetries is the number of retries on 429, 5xx and transport errors.
	MaxRetries int

	// RetryBase is the first backoff interval (default: 500ms).
	RetryBase time.Duration
}

// LLMService generates chat completions over HTTP.
type LLMService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	maxRetries uint64
	retryBase  time.Duration
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewLLMService creates a new LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrInvalidConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = DefaultRetryBase
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	s := &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    NormaliseBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: uint64(cfg.MaxRetries),
		retryBase:  cfg.RetryBase,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	return s, nil
}

// NormaliseBaseURL strips a trailing slash and a full /chat/completions path
// so that endpoint-style configuration values can be used as a base URL.
func NormaliseBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return strings.TrimRight(u, "/")
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := chatCompletionRequest{
		Model:    s.model,
		Messages: chatMessages,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		content, callErr = s.chatCompletion(ctx, jsonBody)
		if callErr != nil && isRetryable(ctx, callErr) {
			logger.Debug("openai: retrying chat completion: %v", callErr)
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", domain.ErrGeneration, err)
	}
	return content, nil
}

func (s *LLMService) chatCompletion(ctx context.Context, jsonBody []byte) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("api error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}

	logger.Debug("openai: %d prompt tokens, %d completion tokens",
		chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)

	return chatResp.Choices[0].Message.Content, nil
}

// isRetryable treats transport failures and throttling or server errors as
// transient. A cancelled or expired context is never retried.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: %w", &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
