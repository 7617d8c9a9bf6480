package handlers

import (
	"errors"
	"net/http"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/agents"
	"github.com/ternarybob/arbor"
)

// CallHandler exposes outbound calls and call history
type CallHandler struct {
	agents *agents.Service
	logger arbor.ILogger
}

// NewCallHandler creates a new call handler
func NewCallHandler(agentsService *agents.Service, logger arbor.ILogger) *CallHandler {
	return &CallHandler{
		agents: agentsService,
		logger: logger,
	}
}

type startCallRequest struct {
	AgentID        string `json:"agent_id"`
	CustomerNumber string `json:"customer_number"`
}

// CollectionHandler routes GET (history) and POST (start) on /api/calls
func (h *CallHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows, err := h.agents.ListCalls(r.Context(), user.ID)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list calls")
			WriteError(w, http.StatusInternalServerError, "failed to list calls")
			return
		}
		if rows == nil {
			rows = []*models.Call{}
		}
		WriteJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var req startCallRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		call, err := h.agents.StartCall(r.Context(), user.ID, req.AgentID, req.CustomerNumber)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "agent not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, call)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler serves GET /api/calls/{id}
func (h *CallHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	id := PathSuffix(r, "/api/calls")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "call id is required")
		return
	}

	call, err := h.agents.GetCall(r.Context(), user.ID, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "call not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load call")
		return
	}

	WriteJSON(w, http.StatusOK, call)
}
