// -----------------------------------------------------------------------
// Agents Service - voice agent lifecycle and call orchestration
// Each agent is backed by a remote assistant on the voice platform
// -----------------------------------------------------------------------

package agents

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/llm"
	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/ternarybob/arbor"
)

var validate = validator.New()

// promptPreamble frames every assistant as a calling agent acting for the
// user. Agent-specific instructions are appended below it.
const promptPreamble = `You are a polite and efficient AI assistant making a phone call on behalf of a user.
Introduce yourself as an assistant calling for the user, state the purpose of the call early, and keep the conversation focused.
If the person you are talking to asks to speak with the user directly, offer to transfer the call when a transfer number is available.
When the goal of the call is reached, confirm the important details back before ending the call.`

// CreateAgentRequest carries the user-supplied agent configuration.
// PhoneNumber is the user's own number for call transfers, E.164.
type CreateAgentRequest struct {
	Name         string `json:"name" validate:"required"`
	FirstMessage string `json:"first_message"`
	SystemPrompt string `json:"system_prompt"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,e164"`
}

// Service manages voice agents and their calls
type Service struct {
	agents    interfaces.AgentStorage
	calls     interfaces.CallStorage
	users     interfaces.UserStorage
	voice     *voice.Client
	formatter interfaces.SummaryFormatter
	mailer    interfaces.Mailer
	baseURL   string
	logger    arbor.ILogger

	// toolIDs is written by the background tool registration and read by
	// request handlers
	toolMu  sync.RWMutex
	toolIDs []string
}

// NewService creates a new agents service. formatter and mailer may be nil,
// in which case summaries fall back to raw transcripts and no result
// emails are sent.
func NewService(
	storage interfaces.StorageManager,
	voiceClient *voice.Client,
	formatter interfaces.SummaryFormatter,
	mailer interfaces.Mailer,
	server *common.ServerConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		agents:    storage.AgentStorage(),
		calls:     storage.CallStorage(),
		users:     storage.UserStorage(),
		voice:     voiceClient,
		formatter: formatter,
		mailer:    mailer,
		baseURL:   strings.TrimRight(server.BaseURL, "/"),
		logger:    logger,
	}
}

// SetToolIDs attaches the registered server tool identifiers to every
// assistant created afterwards
func (s *Service) SetToolIDs(toolIDs []string) {
	s.toolMu.Lock()
	s.toolIDs = toolIDs
	s.toolMu.Unlock()
}

func (s *Service) currentToolIDs() []string {
	s.toolMu.RLock()
	defer s.toolMu.RUnlock()
	return s.toolIDs
}

func (s *Service) webhookURL() string {
	return s.baseURL + "/api/voice/webhook"
}

// composePrompt joins the shared preamble with the agent's own instructions
func composePrompt(req *CreateAgentRequest) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	if req.PhoneNumber != "" {
		fmt.Fprintf(&sb, "\nThe user can be reached directly at %s for call transfers.", req.PhoneNumber)
	}
	if req.SystemPrompt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(req.SystemPrompt)
	}
	return sb.String()
}

// builtinTools enables the platform tools every assistant gets. The
// transferCall tool is added only when a transfer number exists.
func builtinTools(transferNumber string) []voice.BuiltinTool {
	tools := []voice.BuiltinTool{
		{Type: "endCall"},
		{Type: "sms"},
		{Type: "dtmf"},
		{Type: "google.calendar.availability.check"},
		{Type: "google.calendar.event.create"},
	}
	if transferNumber != "" {
		tools = append(tools, voice.BuiltinTool{
			Type:         "transferCall",
			Destinations: []voice.TransferDestination{{Type: "number", Number: transferNumber}},
		})
	}
	return tools
}

func (s *Service) assistantRequest(req *CreateAgentRequest) *voice.CreateAssistantRequest {
	return &voice.CreateAssistantRequest{
		Name:         req.Name,
		FirstMessage: req.FirstMessage,
		Model: &voice.AssistantModel{
			Provider: "openai",
			Model:    "gpt-4o",
			Messages: []voice.ModelMessage{
				{Role: "system", Content: composePrompt(req)},
			},
			Tools:   builtinTools(req.PhoneNumber),
			ToolIDs: s.currentToolIDs(),
		},
		Voice: &voice.AssistantVoice{
			Provider: "11labs",
			VoiceID:  "sarah",
		},
		ServerURL: s.webhookURL(),
	}
}

// CreateAgent provisions a platform assistant and stores the agent row
func (s *Service) CreateAgent(ctx context.Context, userID string, req *CreateAgentRequest) (*models.Agent, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid agent request: %w", err)
	}

	assistant, err := s.voice.CreateAssistant(ctx, s.assistantRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to provision assistant: %w", err)
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		ID:           common.NewAgentID(),
		UserID:       userID,
		AssistantID:  assistant.ID,
		Name:         req.Name,
		FirstMessage: req.FirstMessage,
		SystemPrompt: req.SystemPrompt,
		PhoneNumber:  req.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.agents.SaveAgent(ctx, agent); err != nil {
		// Remove the now-orphaned remote assistant so a retry starts clean
		if delErr := s.voice.DeleteAssistant(ctx, assistant.ID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("assistant_id", assistant.ID).Msg("Failed to remove orphaned assistant")
		}
		return nil, fmt.Errorf("failed to save agent: %w", err)
	}

	s.logger.Info().
		Str("agent_id", agent.ID).
		Str("assistant_id", assistant.ID).
		Str("user_id", userID).
		Msg("Agent created")

	return agent, nil
}

// GetAgent returns an agent owned by the user
func (s *Service) GetAgent(ctx context.Context, userID, agentID string) (*models.Agent, error) {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return agent, nil
}

// ListAgents returns all agents owned by the user
func (s *Service) ListAgents(ctx context.Context, userID string) ([]*models.Agent, error) {
	return s.agents.ListAgents(ctx, userID)
}

// UpdateAgent applies non-empty fields and pushes the merged configuration
// to the platform before saving
func (s *Service) UpdateAgent(ctx context.Context, userID, agentID string, req *CreateAgentRequest) (*models.Agent, error) {
	agent, err := s.GetAgent(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.FirstMessage != "" {
		agent.FirstMessage = req.FirstMessage
	}
	if req.SystemPrompt != "" {
		agent.SystemPrompt = req.SystemPrompt
	}
	if req.PhoneNumber != "" {
		agent.PhoneNumber = req.PhoneNumber
	}
	agent.UpdatedAt = time.Now().UTC()

	merged := &CreateAgentRequest{
		Name:         agent.Name,
		FirstMessage: agent.FirstMessage,
		SystemPrompt: agent.SystemPrompt,
		PhoneNumber:  agent.PhoneNumber,
	}
	if _, err := s.voice.UpdateAssistant(ctx, agent.AssistantID, s.assistantRequest(merged)); err != nil {
		return nil, fmt.Errorf("failed to update assistant: %w", err)
	}

	if err := s.agents.SaveAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to save agent: %w", err)
	}
	return agent, nil
}

// DeleteAgent removes the local row and, best effort, the remote assistant
func (s *Service) DeleteAgent(ctx context.Context, userID, agentID string) error {
	agent, err := s.GetAgent(ctx, userID, agentID)
	if err != nil {
		return err
	}

	if err := s.voice.DeleteAssistant(ctx, agent.AssistantID); err != nil {
		s.logger.Warn().Err(err).Str("assistant_id", agent.AssistantID).Msg("Failed to delete remote assistant")
	}

	return s.agents.DeleteAgent(ctx, agentID)
}

// StartCall places an outbound call through the agent's assistant
func (s *Service) StartCall(ctx context.Context, userID, agentID, customerNumber string) (*models.Call, error) {
	if strings.TrimSpace(customerNumber) == "" {
		return nil, fmt.Errorf("customer number is required")
	}

	agent, err := s.GetAgent(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}

	platformCall, err := s.voice.CreateCall(ctx, &voice.CreateCallRequest{
		AssistantID: agent.AssistantID,
		Customer:    &voice.Customer{Number: customerNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start call: %w", err)
	}

	now := time.Now().UTC()
	call := &models.Call{
		ID:             common.NewCallID(),
		UserID:         userID,
		AgentID:        agent.ID,
		PlatformCallID: platformCall.ID,
		CustomerNumber: customerNumber,
		Status:         models.CallStatusQueued,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.calls.SaveCall(ctx, call); err != nil {
		return nil, fmt.Errorf("failed to save call: %w", err)
	}

	s.logger.Info().
		Str("call_id", call.ID).
		Str("platform_call_id", platformCall.ID).
		Str("agent_id", agent.ID).
		Msg("Outbound call started")

	return call, nil
}

// GetCall returns a call owned by the user
func (s *Service) GetCall(ctx context.Context, userID, callID string) (*models.Call, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return call, nil
}

// ListCalls returns the user's call history
func (s *Service) ListCalls(ctx context.Context, userID string) ([]*models.Call, error) {
	return s.calls.ListCalls(ctx, userID)
}

// HandleEndOfCall persists the report the platform posts when a call
// finishes. When the platform supplies no summary the transcript is
// summarized locally, falling back to the raw transcript. The result is
// emailed to the owning user, best effort.
func (s *Service) HandleEndOfCall(ctx context.Context, report *models.EndOfCallReport) error {
	platformCallID := report.Message.Call.ID
	if platformCallID == "" {
		return fmt.Errorf("call report has no call id")
	}

	call, err := s.calls.GetCallByPlatformID(ctx, platformCallID)
	if errors.Is(err, interfaces.ErrNotFound) {
		// Inbound or externally placed call; adopt it under the agent's owner
		call, err = s.adoptUnknownCall(ctx, report)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve call %s: %w", platformCallID, err)
	}

	now := time.Now().UTC()
	call.Status = models.CallStatusEnded
	call.EndedReason = report.Message.EndedReason
	call.Transcript = report.Message.Transcript
	call.EndedAt = &now
	call.UpdatedAt = now

	summary := strings.TrimSpace(report.Message.Summary)
	if summary == "" {
		summary = llm.FormatOrFallback(ctx, s.formatter, report.Message.Transcript, s.logger)
	}
	call.Summary = summary

	if err := s.calls.SaveCall(ctx, call); err != nil {
		return fmt.Errorf("failed to save call report: %w", err)
	}

	s.logger.Info().
		Str("call_id", call.ID).
		Str("ended_reason", call.EndedReason).
		Msg("Call report stored")

	s.emailSummary(ctx, call)
	s.announceSummary(ctx, call)
	return nil
}

// announceSummary calls the user's transfer number back with a transient
// assistant that reads the summary aloud and hangs up, best effort
func (s *Service) announceSummary(ctx context.Context, call *models.Call) {
	if call.Summary == "" {
		return
	}
	agent, err := s.agents.GetAgent(ctx, call.AgentID)
	if err != nil || agent.PhoneNumber == "" {
		return
	}

	_, err = s.voice.CreateCall(ctx, &voice.CreateCallRequest{
		Customer: &voice.Customer{Number: agent.PhoneNumber},
		Assistant: &voice.CreateAssistantRequest{
			FirstMessage: "Here's your summary: " + call.Summary,
			Model: &voice.AssistantModel{
				Provider: "openai",
				Model:    "gpt-4o",
				Messages: []voice.ModelMessage{
					{Role: "system", Content: "After delivering the first message, end the call."},
				},
				Tools: []voice.BuiltinTool{{Type: "endCall"}},
			},
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("call_id", call.ID).Msg("Failed to place summary callback call")
	}
}

// adoptUnknownCall creates a local row for a platform call we did not place
func (s *Service) adoptUnknownCall(ctx context.Context, report *models.EndOfCallReport) (*models.Call, error) {
	agent, err := s.agents.GetAgentByAssistantID(ctx, report.Message.Assistant.ID)
	if err != nil {
		return nil, fmt.Errorf("no agent for assistant %s: %w", report.Message.Assistant.ID, err)
	}

	now := time.Now().UTC()
	return &models.Call{
		ID:             common.NewCallID(),
		UserID:         agent.UserID,
		AgentID:        agent.ID,
		PlatformCallID: report.Message.Call.ID,
		Status:         models.CallStatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// emailSummary delivers the call summary to the owning user, best effort
func (s *Service) emailSummary(ctx context.Context, call *models.Call) {
	if s.mailer == nil || call.Summary == "" {
		return
	}

	user, err := s.users.GetUser(ctx, call.UserID)
	if err != nil || user.Email == "" {
		return
	}

	subject := "Your call has finished"
	text := call.Summary
	htmlBody := fmt.Sprintf("<p>%s</p>", html.EscapeString(call.Summary))
	if call.Transcript != "" {
		text += "\n\nFull transcript:\n" + call.Transcript
		htmlBody += fmt.Sprintf("<h3>Full transcript</h3><pre>%s</pre>", html.EscapeString(call.Transcript))
	}

	if err := s.mailer.Send(ctx, user.Email, subject, text, htmlBody); err != nil {
		s.logger.Warn().Err(err).Str("call_id", call.ID).Msg("Failed to email call summary")
	}
}
