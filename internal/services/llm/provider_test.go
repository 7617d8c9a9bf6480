package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type stubFormatter struct {
	summary string
	err     error
}

func (s *stubFormatter) FormatSummary(context.Context, string) (string, error) {
	return s.summary, s.err
}

func TestFormatOrFallbackUsesProviderSummary(t *testing.T) {
	formatter := &stubFormatter{summary: "I booked the table for 7pm."}

	out := FormatOrFallback(context.Background(), formatter, "agent: hi\ncallee: hello", arbor.NewLogger())
	assert.Equal(t, "I booked the table for 7pm.", out)
}

func TestFormatOrFallbackOnProviderError(t *testing.T) {
	formatter := &stubFormatter{err: fmt.Errorf("quota exceeded")}

	out := FormatOrFallback(context.Background(), formatter, "agent: hi", arbor.NewLogger())
	assert.Equal(t, "agent: hi", out)
}

func TestFormatOrFallbackWithoutFormatter(t *testing.T) {
	out := FormatOrFallback(context.Background(), nil, "  agent: hi  ", arbor.NewLogger())
	assert.Equal(t, "agent: hi", out)

	out = FormatOrFallback(context.Background(), nil, "   ", arbor.NewLogger())
	assert.Empty(t, out)
}

func TestFormatOrFallbackOnEmptySummary(t *testing.T) {
	formatter := &stubFormatter{summary: "  "}

	out := FormatOrFallback(context.Background(), formatter, "agent: hi", arbor.NewLogger())
	assert.Equal(t, "agent: hi", out)
}

func TestNewSummaryFormatterRejectsUnknownProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = "copilot"

	_, err := NewSummaryFormatter(cfg, nil, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewSummaryFormatterNilWithoutKeys(t *testing.T) {
	cfg := common.NewDefaultConfig()

	formatter, err := NewSummaryFormatter(cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Nil(t, formatter)
}
