package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/parlo-ai/parlo/internal/services/accounts"
	"github.com/ternarybob/arbor"
)

// AccountHandler exposes registration, login, and session endpoints
type AccountHandler struct {
	accounts *accounts.Service
	logger   arbor.ILogger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountsService *accounts.Service, logger arbor.ILogger) *AccountHandler {
	return &AccountHandler{
		accounts: accountsService,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// RegisterHandler creates a new user account
func (h *AccountHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req credentialsRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

// LoginHandler verifies credentials and issues a session token
func (h *AccountHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req credentialsRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.accounts.Login(r.Context(), req.Email, req.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Login failed")
		WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// LogoutHandler destroys the current session
func (h *AccountHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if token := BearerToken(r); token != "" {
		if err := h.accounts.Logout(r.Context(), token); err != nil {
			h.logger.Warn().Err(err).Msg("Logout failed")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	WriteSuccess(w, "logged out")
}

// MeHandler returns the authenticated user
func (h *AccountHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	user := RequireUser(w, r)
	if user == nil {
		return
	}

	WriteJSON(w, http.StatusOK, user)
}
