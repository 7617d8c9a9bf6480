package models

import "encoding/json"

// ToolCall is a single function invocation inside a webhook envelope
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// ToolCallEnvelope is the webhook body the voice platform posts when an
// assistant invokes a server tool
type ToolCallEnvelope struct {
	Message struct {
		Type      string     `json:"type"`
		ToolCalls []ToolCall `json:"toolCalls"`
		Call      struct {
			ID          string `json:"id"`
			AssistantID string `json:"assistantId,omitempty"`
		} `json:"call"`
	} `json:"message"`
}

// ToolCallResult is one entry in the response the platform expects.
// Result is natural-language text read back to the caller.
type ToolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// ToolCallResponse wraps tool results. Tool handlers always answer HTTP 200
// with this shape; failures are reported as message text, never status codes.
type ToolCallResponse struct {
	Results []ToolCallResult `json:"results"`
}

// EndOfCallReport is the webhook body delivered when a call finishes
type EndOfCallReport struct {
	Message struct {
		Type        string `json:"type"`
		EndedReason string `json:"endedReason,omitempty"`
		Summary     string `json:"summary,omitempty"`
		Transcript  string `json:"transcript,omitempty"`
		Call        struct {
			ID string `json:"id"`
		} `json:"call"`
		Assistant struct {
			ID string `json:"id"`
		} `json:"assistant"`
	} `json:"message"`
}
