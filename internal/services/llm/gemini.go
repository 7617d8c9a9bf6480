package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiFormatter summarizes transcripts with the Google Gemini API
type GeminiFormatter struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiFormatter creates a Gemini-backed summary formatter
func NewGeminiFormatter(config *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiFormatter, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required (set PARLO_GEMINI_API_KEY or gemini.api_key in config): %w", err)
	}

	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini summary formatter initialized")

	return &GeminiFormatter{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// FormatSummary generates a first-person call summary from a transcript
func (f *GeminiFormatter) FormatSummary(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(f.config.Temperature),
		SystemInstruction: genai.NewContentFromText(summarySystemPrompt, genai.RoleUser),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildSummaryPrompt(transcript), genai.RoleUser),
	}

	start := time.Now()
	resp, err := f.client.Models.GenerateContent(timeoutCtx, f.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	var summary strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					summary.WriteString(part.Text)
				}
			}
			if summary.Len() > 0 {
				break
			}
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
