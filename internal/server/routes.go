package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Accounts and sessions
	mux.HandleFunc("/api/auth/register", s.app.AccountHandler.RegisterHandler)
	mux.HandleFunc("/api/auth/login", s.app.AccountHandler.LoginHandler)
	mux.HandleFunc("/api/auth/logout", s.app.AccountHandler.LogoutHandler)
	mux.HandleFunc("/api/auth/me", s.app.AccountHandler.MeHandler)

	// Google OAuth connect flow
	mux.HandleFunc("/api/auth/google", s.app.OAuthHandler.AuthorizeHandler)
	mux.HandleFunc("/api/auth/google/callback", s.app.OAuthHandler.CallbackHandler)

	// Integrations and the OAuth token endpoints
	mux.HandleFunc("/api/integrations", s.app.IntegrationHandler.CollectionHandler)
	mux.HandleFunc("/api/integrations/google-oauth/token", s.app.IntegrationHandler.TokenHandler)
	mux.HandleFunc("/api/integrations/google-oauth/token/refresh", s.app.IntegrationHandler.TokenRefreshHandler)
	mux.HandleFunc("/api/integrations/google-maps/test", s.app.MapsHandler.TestHandler)
	mux.HandleFunc("/api/integrations/google-maps/geocode", s.app.MapsHandler.GeocodeHandler)
	mux.HandleFunc("/api/integrations/", s.handleIntegrationRoutes)

	// Voice agents and calls
	mux.HandleFunc("/api/agents", s.app.AgentHandler.CollectionHandler)
	mux.HandleFunc("/api/agents/", s.app.AgentHandler.ItemHandler)
	mux.HandleFunc("/api/calls", s.app.CallHandler.CollectionHandler)
	mux.HandleFunc("/api/calls/", s.app.CallHandler.ItemHandler)

	// Knowledge files
	mux.HandleFunc("/api/files/extract", s.app.FileHandler.ExtractHandler)

	// Voice platform webhooks (no session; see middleware)
	mux.HandleFunc("/api/voice/webhook", s.app.WebhookHandler.EventHandler)
	mux.HandleFunc("/api/voice/tools/manage", s.app.WebhookHandler.ManageToolsHandler)
	mux.HandleFunc("/api/voice/tools/find-closest", s.app.WebhookHandler.ToolHandler)
	mux.HandleFunc("/api/voice/tools/find-route", s.app.WebhookHandler.ToolHandler)
	mux.HandleFunc("/api/voice/tools/location-info", s.app.WebhookHandler.ToolHandler)
	mux.HandleFunc("/api/voice/tools/browser-automation", s.app.WebhookHandler.ToolHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleIntegrationRoutes dispatches /api/integrations/{id} while keeping
// the reserved google-oauth and google-maps subtrees out of the item
// handler's way
func (s *Server) handleIntegrationRoutes(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/integrations/")
	if strings.HasPrefix(suffix, "google-oauth/") || strings.HasPrefix(suffix, "google-maps/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.IntegrationHandler.ItemHandler(w, r)
}
