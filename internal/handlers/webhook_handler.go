package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/agents"
	"github.com/parlo-ai/parlo/internal/services/tools"
	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/ternarybob/arbor"
)

// WebhookHandler receives voice platform webhooks. These endpoints are
// platform-facing: tool responses are always HTTP 200 with failures
// reported as spoken text, and no session is required.
type WebhookHandler struct {
	agents    *agents.Service
	tools     *tools.Service
	voice     *voice.Client
	serverURL string
	logger    arbor.ILogger
}

// NewWebhookHandler creates a new webhook handler. serverURL is the public
// webhook address registered with the platform's tools.
func NewWebhookHandler(
	agentsService *agents.Service,
	toolsService *tools.Service,
	voiceClient *voice.Client,
	serverURL string,
	logger arbor.ILogger,
) *WebhookHandler {
	return &WebhookHandler{
		agents:    agentsService,
		tools:     toolsService,
		voice:     voiceClient,
		serverURL: serverURL,
		logger:    logger,
	}
}

// webhookMessage peeks at the message type before full decoding
type webhookMessage struct {
	Message struct {
		Type string `json:"type"`
	} `json:"message"`
}

// EventHandler serves POST /api/voice/webhook. The platform posts both
// tool invocations and end-of-call reports here, discriminated by
// message.type.
func (h *WebhookHandler) EventHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var raw json.RawMessage
	if err := DecodeJSON(r, &raw); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var peek webhookMessage
	if err := json.Unmarshal(raw, &peek); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid webhook body")
		return
	}

	switch peek.Message.Type {
	case "tool-calls":
		h.dispatchTools(w, r, raw)

	case "end-of-call-report":
		var report models.EndOfCallReport
		if err := json.Unmarshal(raw, &report); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid call report")
			return
		}
		if err := h.agents.HandleEndOfCall(r.Context(), &report); err != nil {
			h.logger.Error().Err(err).Msg("Failed to process call report")
			// The platform retries on non-2xx; a report we cannot match
			// will never match, so acknowledge it anyway
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})

	default:
		h.logger.Debug().Str("type", peek.Message.Type).Msg("Ignoring webhook event")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// ToolHandler serves the per-tool webhook routes. All of them accept the
// same tool-calls envelope; the tool name travels inside the payload.
func (h *WebhookHandler) ToolHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var raw json.RawMessage
	if err := DecodeJSON(r, &raw); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.dispatchTools(w, r, raw)
}

func (h *WebhookHandler) dispatchTools(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var envelope models.ToolCallEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid tool call envelope")
		return
	}

	response := h.tools.Dispatch(r.Context(), &envelope)
	WriteJSON(w, http.StatusOK, response)
}

// ManageToolsHandler serves /api/voice/tools/manage. GET lists the
// registered platform tools; POST registers any missing ones.
func (h *WebhookHandler) ManageToolsHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		registered, err := h.voice.ListTools(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list platform tools")
			WriteError(w, http.StatusInternalServerError, "failed to list tools")
			return
		}
		WriteJSON(w, http.StatusOK, registered)

	case http.MethodPost:
		ids, err := tools.EnsureTools(r.Context(), h.voice, h.serverURL, h.logger)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to register platform tools")
			WriteError(w, http.StatusInternalServerError, "failed to register tools")
			return
		}
		h.agents.SetToolIDs(toolIDList(ids))
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"tools":   ids,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func toolIDList(byName map[string]string) []string {
	ids := make([]string, 0, len(byName))
	for _, id := range byName {
		ids = append(ids, id)
	}
	return ids
}
