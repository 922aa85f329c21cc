package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("llm is not configured")

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completer produces assistant replies.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message, onChunk func(string) error) error
}

// LLMClient talks to an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type completionError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewLLMClient returns ErrNotConfigured when no API key is set.
func NewLLMClient(cfg config.LLMConfig, logger *zap.Logger) (*LLMClient, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &LLMClient{httpClient: httpClient, model: cfg.Model, logger: logger}, nil
}

var _ Completer = (*LLMClient)(nil)

func (c *LLMClient) Complete(ctx context.Context, messages []Message) (string, error) {
	var result completionResponse
	var failure completionError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(completionRequest{Model: c.model, Messages: messages, Temperature: 0.2}).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call llm: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("llm error: %s (status: %d)", failure.Error.Message, resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	c.logger.Debug("LLM completion received",
		zap.String("model", c.model),
		zap.String("finish_reason", result.Choices[0].FinishReason),
	)
	return result.Choices[0].Message.Content, nil
}

// Stream requests a server-sent-event completion and calls onChunk for each
// content delta in order. An error from onChunk stops the stream.
func (c *LLMClient) Stream(ctx context.Context, messages []Message, onChunk func(string) error) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetBody(completionRequest{Model: c.model, Messages: messages, Temperature: 0.2, Stream: true}).
		Post("/chat/completions")
	if err != nil {
		return fmt.Errorf("failed to call llm: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		var failure completionError
		_ = json.NewDecoder(body).Decode(&failure)
		return fmt.Errorf("llm error: %s (status: %d)", failure.Error.Message, resp.StatusCode())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("Skipping undecodable stream line", zap.Error(err))
			continue
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			if err := onChunk(ch.Delta.Content); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read llm stream: %w", err)
	}
	return nil
}
