// Package llm formats end-of-call transcripts into short summaries using
// a configurable cloud provider.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// summarySystemPrompt instructs the model to speak as the agent that made
// the call, matching the voice the result email uses.
const summarySystemPrompt = `You summarize phone calls made by an AI voice agent on behalf of a user.
Write a short first-person summary of the call, as if the agent is reporting back to the user.
Mention the outcome first, then any important details such as names, times, prices or addresses.
Keep it under five sentences. Do not invent details that are not in the transcript.`

func buildSummaryPrompt(transcript string) string {
	return fmt.Sprintf("Here is the call transcript:\n\n%s\n\nSummarize the call.", transcript)
}

// FormatOrFallback runs the formatter and falls back to the raw transcript
// when the provider fails or is not configured. A call report always ends
// up with usable summary text.
func FormatOrFallback(ctx context.Context, formatter interfaces.SummaryFormatter, transcript string, logger arbor.ILogger) string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return ""
	}
	if formatter == nil {
		return transcript
	}

	summary, err := formatter.FormatSummary(ctx, transcript)
	if err != nil {
		logger.Warn().Err(err).Msg("Summary formatting failed, using raw transcript")
		return transcript
	}
	if strings.TrimSpace(summary) == "" {
		return transcript
	}
	return summary
}
