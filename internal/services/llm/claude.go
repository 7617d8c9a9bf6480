package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// ClaudeFormatter summarizes transcripts with the Anthropic Claude API
type ClaudeFormatter struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeFormatter creates a Claude-backed summary formatter
func NewClaudeFormatter(config *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*ClaudeFormatter, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config): %w", err)
	}

	if config.Model == "" {
		config.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude summary formatter initialized")

	return &ClaudeFormatter{
		config:    config,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}, nil
}

// FormatSummary generates a first-person call summary from a transcript
func (f *ClaudeFormatter) FormatSummary(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(f.config.Model),
		MaxTokens: int64(f.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: summarySystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildSummaryPrompt(transcript))),
		},
	}
	if f.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(f.config.Temperature))
	}

	start := time.Now()
	resp, err := f.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	var summary strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			summary.WriteString(block.Text)
		}
	}

	if summary.Len() == 0 {
		return "", fmt.Errorf("no summary generated")
	}

	f.logger.Debug().
		Int("summary_length", summary.Len()).
		Dur("duration", time.Since(start)).
		Msg("Call summary generated")

	return strings.TrimSpace(summary.String()), nil
}
