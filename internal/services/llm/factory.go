package llm

import (
	"fmt"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewSummaryFormatter creates the summary formatter selected by
// llm.default_provider. Returns nil without error when no provider has an
// API key configured; callers then fall back to raw transcripts.
func NewSummaryFormatter(
	cfg *common.Config,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) (interfaces.SummaryFormatter, error) {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	switch provider {
	case common.LLMProviderGemini:
		if cfg.Gemini.APIKey == "" && kvStorage == nil {
			logger.Info().Msg("No Gemini API key configured, call summaries will use raw transcripts")
			return nil, nil
		}
		formatter, err := NewGeminiFormatter(&cfg.Gemini, kvStorage, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini formatter: %w", err)
		}
		return formatter, nil

	case common.LLMProviderClaude:
		if cfg.Claude.APIKey == "" && kvStorage == nil {
			logger.Info().Msg("No Claude API key configured, call summaries will use raw transcripts")
			return nil, nil
		}
		formatter, err := NewClaudeFormatter(&cfg.Claude, kvStorage, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude formatter: %w", err)
		}
		return formatter, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
