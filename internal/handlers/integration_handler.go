package handlers

import (
	"errors"
	"net/http"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/integrations"
	"github.com/parlo-ai/parlo/internal/services/oauth"
	"github.com/ternarybob/arbor"
)

// IntegrationHandler exposes integration CRUD and the OAuth token endpoints
type IntegrationHandler struct {
	integrations *integrations.Service
	oauth        *oauth.Service
	storage      interfaces.IntegrationStorage
	logger       arbor.ILogger
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(
	integrationsService *integrations.Service,
	oauthService *oauth.Service,
	storage interfaces.IntegrationStorage,
	logger arbor.ILogger,
) *IntegrationHandler {
	return &IntegrationHandler{
		integrations: integrationsService,
		oauth:        oauthService,
		storage:      storage,
		logger:       logger,
	}
}

// CollectionHandler routes GET (list) and POST (create) on /api/integrations
func (h *IntegrationHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows, err := h.integrations.List(r.Context(), user.ID)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list integrations")
			WriteError(w, http.StatusInternalServerError, "failed to list integrations")
			return
		}
		if rows == nil {
			rows = []*models.Integration{}
		}
		WriteJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var req integrations.CreateIntegrationRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		integration, err := h.integrations.Create(r.Context(), user.ID, &req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, integration)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler routes GET, PATCH, and DELETE on /api/integrations/{id}
func (h *IntegrationHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	id := PathSuffix(r, "/api/integrations")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "integration id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		integration, err := h.integrations.Get(r.Context(), user.ID, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "integration not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load integration")
			return
		}
		WriteJSON(w, http.StatusOK, integration)

	case http.MethodPatch:
		var req integrations.UpdateIntegrationRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		integration, err := h.integrations.Update(r.Context(), user.ID, id, &req)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "integration not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, integration)

	case http.MethodDelete:
		err := h.integrations.Delete(r.Context(), user.ID, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "integration not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to delete integration")
			return
		}
		WriteSuccess(w, "integration deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// TokenHandler serves GET /api/integrations/google-oauth/token.
// Returns the cached token view; a never-connected user gets a 404 with
// hasIntegration false so clients can branch without string matching.
func (h *IntegrationHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	info, err := h.oauth.TokenInfo(r.Context(), user.ID)
	if errors.Is(err, oauth.ErrNotConnected) {
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":          "No Google integration connected",
			"hasIntegration": false,
		})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to read token info")
		WriteError(w, http.StatusInternalServerError, "failed to read token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"access_token": info.AccessToken,
		"token_type":   info.TokenType,
		"expires_at":   info.ExpiresAt,
		"scopes":       info.Scopes,
		"user_email":   info.UserEmail,
	})
}

// TokenRefreshHandler serves POST /api/integrations/google-oauth/token/refresh.
// Forces a synchronous refresh of the user's Google integration.
func (h *IntegrationHandler) TokenRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	integration, err := h.storage.GetIntegrationByService(r.Context(), user.ID, models.ServiceGoogleOAuth)
	if errors.Is(err, interfaces.ErrNotFound) {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "No Google integration connected",
		})
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load integration")
		return
	}
	if integration.Status != models.IntegrationStatusActive {
		// A demoted row cannot be refreshed; the user must reconnect
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "No Google integration connected",
		})
		return
	}

	refreshed, err := h.oauth.Refresh(r.Context(), integration.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("integration_id", integration.ID).Msg("Manual token refresh failed")
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"access_token": refreshed.MetaString(models.MetaAccessToken),
	})
}
