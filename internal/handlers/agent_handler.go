package handlers

import (
	"errors"
	"net/http"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/agents"
	"github.com/ternarybob/arbor"
)

// AgentHandler exposes voice agent CRUD
type AgentHandler struct {
	agents *agents.Service
	logger arbor.ILogger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agentsService *agents.Service, logger arbor.ILogger) *AgentHandler {
	return &AgentHandler{
		agents: agentsService,
		logger: logger,
	}
}

// CollectionHandler routes GET (list) and POST (create) on /api/agents
func (h *AgentHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows, err := h.agents.ListAgents(r.Context(), user.ID)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list agents")
			WriteError(w, http.StatusInternalServerError, "failed to list agents")
			return
		}
		if rows == nil {
			rows = []*models.Agent{}
		}
		WriteJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var req agents.CreateAgentRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		agent, err := h.agents.CreateAgent(r.Context(), user.ID, &req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, agent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler routes GET, PATCH, and DELETE on /api/agents/{id}
func (h *AgentHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	id := PathSuffix(r, "/api/agents")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "agent id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		agent, err := h.agents.GetAgent(r.Context(), user.ID, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "agent not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load agent")
			return
		}
		WriteJSON(w, http.StatusOK, agent)

	case http.MethodPatch:
		var req agents.CreateAgentRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		agent, err := h.agents.UpdateAgent(r.Context(), user.ID, id, &req)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "agent not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, agent)

	case http.MethodDelete:
		err := h.agents.DeleteAgent(r.Context(), user.ID, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "agent not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to delete agent")
			return
		}
		WriteSuccess(w, "agent deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
