package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/JaimeStill/archivist/pkg/formatting"
)

// Config configures an OpenAI-compatible chat completion endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

// Configured reports whether enough is set to reach a provider.
func (c Config) Configured() bool {
	return c.APIKey != "" || c.BaseURL != ""
}

// OpenAI classifies documents through an OpenAI-compatible endpoint.
type OpenAI struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
	logger      *slog.Logger
}

// New returns an OpenAI classifier, or Unavailable when cfg is not configured.
func New(cfg Config, logger *slog.Logger) Classifier {
	if !cfg.Configured() {
		logger.Info("ai classifier disabled")
		return Unavailable{}
	}
	return NewOpenAI(cfg, logger)
}

// NewOpenAI creates an OpenAI classifier for cfg.
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		timeout:     timeout,
		temperature: cfg.Temperature,
		logger:      logger.With("system", "ai", "model", model),
	}
}

func (c *OpenAI) Available() bool { return true }

// Classify sends req to the model and parses its JSON reply.
func (c *OpenAI) Classify(ctx context.Context, req Request) (*Suggestion, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: empty document text", ErrInvalidResponse)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Warn("completion failed", "elapsed", time.Since(start), "error", err)
		return nil, providerError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}

	s, err := formatting.Parse[Suggestion](resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	c.logger.Info(
		"completion succeeded",
		"elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &s, nil
}

func providerError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrProvider, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}
