package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/services/oauth"
	"github.com/ternarybob/arbor"
)

// OAuthHandler drives the Google OAuth connect flow
type OAuthHandler struct {
	oauth           *oauth.Service
	integrationsURL string
	logger          arbor.ILogger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthService *oauth.Service, config *common.OAuthConfig, logger arbor.ILogger) *OAuthHandler {
	return &OAuthHandler{
		oauth:           oauthService,
		integrationsURL: config.IntegrationsURL,
		logger:          logger,
	}
}

// AuthorizeHandler returns the provider authorization URL for the
// authenticated user
func (h *OAuthHandler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	authURL, err := h.oauth.AuthCodeURL(user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build authorization URL")
		WriteError(w, http.StatusInternalServerError, "failed to build authorization URL")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"url": authURL,
	})
}

// CallbackHandler completes the OAuth flow. It is reached by a browser
// navigation from the provider, so the response is always a redirect to
// the integrations page with a success or error query parameter, never
// a JSON body.
func (h *OAuthHandler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query()

	// Provider-reported errors (e.g. access_denied) pass through verbatim
	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn().Str("error", providerErr).Msg("OAuth callback rejected by provider")
		h.redirect(w, r, "error", providerErr)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		h.redirect(w, r, "error", "missing_parameters")
		return
	}

	integration, err := h.oauth.HandleCallback(r.Context(), code, state)
	if err != nil {
		h.logger.Error().Err(err).Msg("OAuth callback failed")
		h.redirect(w, r, "error", callbackErrorCode(err))
		return
	}

	h.logger.Info().
		Str("integration_id", integration.ID).
		Str("user_id", integration.UserID).
		Msg("Google integration connected")

	h.redirect(w, r, "success", "google_connected")
}

func (h *OAuthHandler) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target, err := url.Parse(h.integrationsURL)
	if err != nil {
		http.Redirect(w, r, h.integrationsURL, http.StatusFound)
		return
	}
	query := target.Query()
	query.Set(key, value)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// callbackErrorCode maps callback failures to the coarse codes the
// integrations page understands
func callbackErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, oauth.ErrInvalidState):
		return "missing_parameters"
	case errors.Is(err, oauth.ErrExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, oauth.ErrStorageFailed):
		return "storage_failed"
	default:
		return "callback_failed"
	}
}
