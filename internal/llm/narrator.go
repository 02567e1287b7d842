// Package llm writes country profile narratives with an OpenAI-compatible
// chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/JonMunkholm/healthdash/internal/core"
)

// Config holds narrator settings.
type Config struct {
	APIKey      string
	BaseURL     string // Empty uses api.openai.com
	Model       string
	Timeout     time.Duration // Whole narrative, both turns
	Temperature float64
}

// OpenAINarrator implements core.Narrator as a two-turn conversation: a data
// analysis of the profile digest, then policy advice building on it.
type OpenAINarrator struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

var _ core.Narrator = (*OpenAINarrator)(nil)

// NewOpenAINarrator creates a narrator. An API key is required.
func NewOpenAINarrator(cfg Config) (*OpenAINarrator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &OpenAINarrator{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Narrate runs both turns. The advice turn sees the analysis as context.
func (n *OpenAINarrator) Narrate(ctx context.Context, req core.NarrativeRequest) (core.Narrative, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(req.Country, req.Digest)},
	}

	analysis, err := n.complete(ctx, messages)
	if err != nil {
		return core.Narrative{}, fmt.Errorf("analysis: %w", err)
	}

	messages = append(messages,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: analysis},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: advicePrompt(req.Country)},
	)
	advice, err := n.complete(ctx, messages)
	if err != nil {
		return core.Narrative{}, fmt.Errorf("advice: %w", err)
	}

	slog.Info("narrative generated",
		"country", req.Country,
		"model", n.model,
		"digest_bytes", len(req.Digest),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return core.Narrative{Analysis: analysis, Advice: advice, Model: n.model}, nil
}

func (n *OpenAINarrator) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Messages:    messages,
		Temperature: n.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", fmt.Errorf("llm rate limit: %w", err)
		}
		return "", fmt.Errorf("llm request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
