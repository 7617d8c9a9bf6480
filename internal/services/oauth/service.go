package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/vault"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
)

var (
	// ErrNotConnected is returned when the user has no Google integration.
	// Absence is not a failure; callers map this to a 404.
	ErrNotConnected = errors.New("no google integration connected")

	// ErrIntegrationNotFound is returned when a refresh targets an
	// integration id that does not exist
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrNoRefreshToken is returned when the stored credential carries no
	// refresh token, so the access token cannot be recovered
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrExchangeFailed wraps provider rejections of the authorization code
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrStorageFailed wraps persistence failures during the callback
	ErrStorageFailed = errors.New("failed to store integration")
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Service implements interfaces.TokenManager for Google OAuth integrations.
// Tokens are sealed into the integration's credential blob; a denormalized
// copy of the access token and expiry lives in metadata so the hot read path
// never touches the network.
type Service struct {
	config       *common.OAuthConfig
	integrations interfaces.IntegrationStorage
	vault        *vault.Service
	states       *stateSigner
	logger       arbor.ILogger
	client       *http.Client

	// Provider endpoints, replaceable in tests
	authURL     string
	tokenURL    string
	userinfoURL string

	now func() time.Time
}

// NewService creates a new OAuth token manager
func NewService(
	config *common.OAuthConfig,
	integrations interfaces.IntegrationStorage,
	vlt *vault.Service,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:       config,
		integrations: integrations,
		vault:        vlt,
		states:       newStateSigner(config.StateSecret, config.StateTTL),
		logger:       logger,
		client:       &http.Client{Timeout: 30 * time.Second},
		authURL:      googleAuthURL,
		tokenURL:     googleTokenURL,
		userinfoURL:  googleUserinfoURL,
		now:          time.Now,
	}
}

func (s *Service) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		RedirectURL:  s.config.RedirectURL,
		Scopes:       s.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.authURL,
			TokenURL: s.tokenURL,
		},
	}
}

// AuthCodeURL builds the Google consent URL for a user.
// access_type=offline and prompt=consent force Google to return a refresh
// token on every connect, not only the first.
func (s *Service) AuthCodeURL(userID string) (string, error) {
	state, err := s.states.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue oauth state: %w", err)
	}

	return s.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// HandleCallback exchanges an authorization code for tokens and upserts the
// user's google_oauth integration row
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*models.Integration, error) {
	userID, err := s.states.Verify(state)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	// Userinfo enriches the row but never blocks the connection
	email, name := "", ""
	if info, err := s.fetchUserInfo(ctx, token.AccessToken); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch userinfo")
	} else {
		email, name = info.Email, info.Name
	}

	scope, _ := token.Extra("scope").(string)
	now := s.now().UTC()

	payload := models.TokenPayload{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int64(token.Expiry.Sub(now).Seconds()),
		TokenType:    token.TokenType,
		Scope:        scope,
	}
	sealed, err := s.sealPayload(&payload)
	if err != nil {
		return nil, err
	}

	integration := &models.Integration{
		ID:          common.NewIntegrationID(),
		UserID:      userID,
		ServiceName: models.ServiceGoogleOAuth,
		Name:        "Google Account",
		Status:      models.IntegrationStatusActive,
		Credential:  sealed,
		Config: map[string]interface{}{
			"user_email": email,
			"user_name":  name,
			"scopes":     strings.Fields(scope),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	integration.SetMeta(models.MetaAccessToken, token.AccessToken)
	integration.SetMeta(models.MetaTokenType, token.TokenType)
	integration.SetMeta(models.MetaExpiresAt, token.Expiry.UTC().UnixMilli())
	integration.SetMeta(models.MetaLastRefreshedAt, now.Format(time.RFC3339))

	if err := s.integrations.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	s.linkMapsIntegration(ctx, userID)

	s.logger.Info().
		Str("user_id", userID).
		Str("user_email", email).
		Msg("Google account connected")

	return integration, nil
}

// GetValidAccessToken returns a usable access token for the user.
// A cached token outside the expiry margin is returned without any network
// call; otherwise exactly one synchronous refresh is attempted. Only an
// active integration serves tokens, so a row demoted after a revoked grant
// reads as not connected until the user reconnects.
func (s *Service) GetValidAccessToken(ctx context.Context, userID string) (string, error) {
	integration, err := s.activeIntegration(ctx, userID)
	if err != nil {
		return "", err
	}

	payload, err := s.openPayload(integration.Credential)
	if err != nil {
		return "", fmt.Errorf("failed to open stored credential: %w", err)
	}

	expiresAt := integration.MetaInt64(models.MetaExpiresAt)
	switch models.EvaluateTokenState(s.now(), expiresAt, payload.RefreshToken != "") {
	case models.TokenStateValid:
		if token := integration.MetaString(models.MetaAccessToken); token != "" {
			return token, nil
		}
	case models.TokenStateInvalid:
		return "", ErrNoRefreshToken
	}

	refreshed, err := s.Refresh(ctx, integration.ID)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	return refreshed.MetaString(models.MetaAccessToken), nil
}

// activeIntegration loads the user's google_oauth row. Non-active rows are
// treated as not connected; a demoted integration must be reconnected, not
// refreshed.
func (s *Service) activeIntegration(ctx context.Context, userID string) (*models.Integration, error) {
	integration, err := s.integrations.GetIntegrationByService(ctx, userID, models.ServiceGoogleOAuth)
	if err == interfaces.ErrNotFound {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if integration.Status != models.IntegrationStatusActive {
		return nil, ErrNotConnected
	}
	return integration, nil
}

// tokenResponse is the provider's refresh grant response
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the updated credential and metadata together. On any failure the
// stored row is left exactly as it was, except that a revoked grant demotes
// the integration status to error.
func (s *Service) Refresh(ctx context.Context, integrationID string) (*models.Integration, error) {
	integration, err := s.integrations.GetIntegration(ctx, integrationID)
	if err == interfaces.ErrNotFound {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}

	payload, err := s.openPayload(integration.Credential)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored credential: %w", err)
	}
	if payload.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	form := url.Values{
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"refresh_token": {payload.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.AccessToken == "" {
		if result.Error == "invalid_grant" {
			// Grant was revoked or expired; flag the row so the UI can
			// prompt a reconnect. Token cache stays untouched.
			integration.Status = models.IntegrationStatusError
			if saveErr := s.integrations.SaveIntegration(ctx, integration); saveErr != nil {
				s.logger.Warn().Err(saveErr).Str("integration_id", integration.ID).Msg("Failed to flag revoked integration")
			}
		}
		if result.Error != "" {
			return nil, fmt.Errorf("provider refused refresh: %s (%s)", result.Error, result.ErrorDesc)
		}
		return nil, fmt.Errorf("provider refused refresh: status %d", resp.StatusCode)
	}

	// Google omits refresh_token from refresh responses; keep the old one
	payload.AccessToken = result.AccessToken
	payload.ExpiresIn = result.ExpiresIn
	if result.TokenType != "" {
		payload.TokenType = result.TokenType
	}
	if result.Scope != "" {
		payload.Scope = result.Scope
	}
	if result.RefreshToken != "" {
		payload.RefreshToken = result.RefreshToken
	}

	sealed, err := s.sealPayload(payload)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	integration.Credential = sealed
	integration.Status = models.IntegrationStatusActive
	integration.SetMeta(models.MetaAccessToken, result.AccessToken)
	integration.SetMeta(models.MetaTokenType, payload.TokenType)
	integration.SetMeta(models.MetaExpiresAt, now.UnixMilli()+result.ExpiresIn*1000)
	integration.SetMeta(models.MetaLastRefreshedAt, now.Format(time.RFC3339))

	if err := s.integrations.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	s.logger.Info().
		Str("integration_id", integration.ID).
		Str("user_id", integration.UserID).
		Int64("expires_in", result.ExpiresIn).
		Msg("Access token refreshed")

	return integration, nil
}

// TokenInfo returns the cached token view without any provider calls
func (s *Service) TokenInfo(ctx context.Context, userID string) (*interfaces.TokenInfo, error) {
	integration, err := s.activeIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := &interfaces.TokenInfo{
		AccessToken: integration.MetaString(models.MetaAccessToken),
		TokenType:   integration.MetaString(models.MetaTokenType),
		ExpiresAt:   integration.MetaInt64(models.MetaExpiresAt),
		Scopes:      configScopes(integration),
	}
	if email, ok := integration.Config["user_email"].(string); ok {
		info.UserEmail = email
	}
	return info, nil
}

func configScopes(integration *models.Integration) []string {
	switch v := integration.Config["scopes"].(type) {
	case []string:
		return v
	case []interface{}:
		scopes := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	return nil
}

func (s *Service) sealPayload(payload *models.TokenPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential payload: %w", err)
	}
	sealed, err := s.vault.Seal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to seal credential payload: %w", err)
	}
	return sealed, nil
}

func (s *Service) openPayload(sealed string) (*models.TokenPayload, error) {
	raw, err := s.vault.Open(sealed)
	if err != nil {
		return nil, err
	}
	var payload models.TokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode credential payload: %w", err)
	}
	return &payload, nil
}

type userInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *Service) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// linkMapsIntegration marks an existing google_maps row as backed by the
// freshly connected account. Failures are logged and ignored; the OAuth
// connection itself already succeeded.
func (s *Service) linkMapsIntegration(ctx context.Context, userID string) {
	maps, err := s.integrations.GetIntegrationByService(ctx, userID, models.ServiceGoogleMaps)
	if err == interfaces.ErrNotFound {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to look up maps integration")
		return
	}

	maps.Status = models.IntegrationStatusActive
	maps.SetMeta("oauth_backed", true)
	if err := s.integrations.SaveIntegration(ctx, maps); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to update maps integration")
	}
}
