package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChatConfig configures an OpenAI-compatible chat completions endpoint.
type ChatConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	// KeyOptional allows requests without an API key (public endpoints).
	KeyOptional bool `yaml:"key_optional"`
}

// DefaultDeepSeekConfig returns the DeepSeek chat endpoint defaults.
func DefaultDeepSeekConfig() ChatConfig {
	return ChatConfig{
		BaseURL:     "https://api.deepseek.com/v1",
		Model:       "deepseek-chat",
		Temperature: 0,
		Timeout:     2 * time.Minute,
	}
}

// DefaultHuggingFaceConfig returns the HuggingFace router defaults. The router
// accepts anonymous requests under public rate limits.
func DefaultHuggingFaceConfig() ChatConfig {
	return ChatConfig{
		BaseURL:     "https://router.huggingface.co/v1",
		Model:       "Qwen/Qwen2.5-7B-Instruct",
		Temperature: 0.1,
		MaxTokens:   2048,
		Timeout:     2 * time.Minute,
		KeyOptional: true,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatClient generates D-Files through an OpenAI-compatible chat endpoint.
type ChatClient struct {
	name       string
	cfg        ChatConfig
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

// NewChatClient creates a client. name identifies the provider in logs.
func NewChatClient(name string, cfg ChatConfig, log *zap.Logger) (*ChatClient, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%s: base_url and model are required", name)
	}
	if cfg.APIKey == "" && !cfg.KeyOptional {
		return nil, fmt.Errorf("%s: API key not configured", name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatClient{
		name:       name,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Named(name),
		maxRetries: 3,
		backoff:    time.Second,
	}, nil
}

// Name returns the provider name.
func (c *ChatClient) Name() string { return c.name }

// Generate sends the system prompt and the user prompt, asking for a JSON
// object response, and parses the reply.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (map[string]any, error) {
	content, err := c.complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return ParseOutput(content), nil
}

func (c *ChatClient) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	c.log.Debug("chat completion", zap.String("model", c.cfg.Model), zap.Int("prompt_len", len(user)))

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff << uint(i-1)):
			}
		}

		content, retry, err := c.do(ctx, body)
		if err == nil {
			c.log.Info("chat completion done",
				zap.Duration("elapsed", time.Since(start)),
				zap.Int("response_len", len(content)))
			return content, nil
		}
		if !retry {
			return "", err
		}
		lastErr = err
		c.log.Warn("chat completion retry", zap.Int("attempt", i+1), zap.Error(err))
	}
	return "", fmt.Errorf("%s: max retries exceeded: %w", c.name, lastErr)
}

// do performs one request. retry reports whether the failure is transient.
func (c *ChatClient) do(ctx context.Context, body []byte) (content string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("%s: read response: %w", c.name, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("%s: rate limit exceeded (429)", c.name)
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("%s: server error %d: %s", c.name, resp.StatusCode, truncate(data))
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("%s: request failed with status %d: %s", c.name, resp.StatusCode, truncate(data))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", false, fmt.Errorf("%s: parse response: %w", c.name, err)
	}
	if out.Error != nil {
		return "", false, fmt.Errorf("%s: API error: %s", c.name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", false, fmt.Errorf("%s: no completion returned", c.name)
	}
	return out.Choices[0].Message.Content, false, nil
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
