package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/knowledge-extractor/internal/domain/ai"
	"github.com/bryanwahyu/knowledge-extractor/internal/infra/ai/prompt"
)

const (
	defaultModel     = openai.GPT4oMini
	defaultMaxTokens = 400
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	// Retries is how many extra attempts a transient failure (network error, 5xx) gets.
	Retries int
}

type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
	Retries   int
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		Client:    openai.NewClientWithConfig(oc),
		Model:     model,
		MaxTokens: maxTokens,
		Retries:   retries,
	}
}

// Extract asks the model for the summary and structured fields in one round trip.
func (c *Client) Extract(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(text)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 0; attempt <= c.Retries; attempt++ {
		resp, err = c.CreateChatCompletion(ctx, req)
		if err == nil || !isTransient(ctx, err) {
			break
		}
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ai.ErrTimeout
		}
		if statusCode(err) == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if code := statusCode(err); code >= http.StatusInternalServerError {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
