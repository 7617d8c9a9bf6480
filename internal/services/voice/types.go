package voice

import "time"

// ModelMessage is a system or assistant prompt message
type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantModel configures the LLM backing an assistant
type AssistantModel struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Messages []ModelMessage `json:"messages,omitempty"`
	Tools    []BuiltinTool  `json:"tools,omitempty"`
	ToolIDs  []string       `json:"toolIds,omitempty"`
}

// TransferDestination is a transferCall target
type TransferDestination struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// BuiltinTool enables one of the platform's built-in assistant tools
// (endCall, sms, dtmf, calendar, transferCall). Only transferCall carries
// destinations.
type BuiltinTool struct {
	Type         string                `json:"type"`
	Destinations []TransferDestination `json:"destinations,omitempty"`
}

// AssistantVoice selects the TTS voice
type AssistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// Assistant is a voice platform assistant
type Assistant struct {
	ID           string          `json:"id"`
	OrgID        string          `json:"orgId,omitempty"`
	Name         string          `json:"name"`
	FirstMessage string          `json:"firstMessage,omitempty"`
	Model        *AssistantModel `json:"model,omitempty"`
	Voice        *AssistantVoice `json:"voice,omitempty"`
	ServerURL    string          `json:"serverUrl,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt,omitempty"`
}

// CreateAssistantRequest is the payload for creating or updating an assistant
type CreateAssistantRequest struct {
	Name         string          `json:"name"`
	FirstMessage string          `json:"firstMessage,omitempty"`
	Model        *AssistantModel `json:"model,omitempty"`
	Voice        *AssistantVoice `json:"voice,omitempty"`
	ServerURL    string          `json:"serverUrl,omitempty"`
}

// Customer identifies the callee of an outbound call
type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// Call is a voice platform call record
type Call struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistantId,omitempty"`
	Status      string    `json:"status,omitempty"`
	Customer    *Customer `json:"customer,omitempty"`
	EndedReason string    `json:"endedReason,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// CreateCallRequest starts an outbound call. Either AssistantID references
// a stored assistant or Assistant defines a transient one for this call only.
type CreateCallRequest struct {
	AssistantID   string                  `json:"assistantId,omitempty"`
	PhoneNumberID string                  `json:"phoneNumberId"`
	Customer      *Customer               `json:"customer"`
	Assistant     *CreateAssistantRequest `json:"assistant,omitempty"`
}

// PhoneNumber is a provisioned platform phone number
type PhoneNumber struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ToolFunction describes a callable function exposed to an assistant
type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolServer points tool invocations at a webhook
type ToolServer struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// Tool is a platform-registered function tool
type Tool struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type"`
	Function *ToolFunction `json:"function,omitempty"`
	Server   *ToolServer   `json:"server,omitempty"`
}

// File is an uploaded knowledge file. ParsedTextURL points at the
// platform's extracted markdown rendition when parsing succeeded.
type File struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url,omitempty"`
	Bytes         int64  `json:"bytes,omitempty"`
	ParsedTextURL string `json:"parsedTextUrl,omitempty"`
}
