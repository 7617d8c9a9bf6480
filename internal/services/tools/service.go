package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/maps"
	"github.com/ternarybob/arbor"
)

const closestResultLimit = 5

// Service dispatches tool calls received from the voice platform.
// Every call produces spoken-text output; failures become apologetic
// messages rather than errors, since the platform reads the result to a
// live caller.
type Service struct {
	maps       interfaces.MapsService
	tokens     interfaces.TokenManager
	agents     interfaces.AgentStorage
	users      interfaces.UserStorage
	mailer     interfaces.Mailer
	automation *common.AutomationConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewService creates a new tool dispatch service. mailer may be nil when
// result emails are not configured.
func NewService(
	maps interfaces.MapsService,
	tokens interfaces.TokenManager,
	agents interfaces.AgentStorage,
	users interfaces.UserStorage,
	mailer interfaces.Mailer,
	automation *common.AutomationConfig,
	logger arbor.ILogger,
) *Service {
	timeout := 2 * time.Minute
	if automation != nil && automation.Timeout > 0 {
		timeout = automation.Timeout
	}

	return &Service{
		maps:       maps,
		tokens:     tokens,
		agents:     agents,
		users:      users,
		mailer:     mailer,
		automation: automation,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dispatch runs every tool call in the envelope and collects the results.
// The response always carries one result per call, keyed by toolCallId.
func (s *Service) Dispatch(ctx context.Context, envelope *models.ToolCallEnvelope) *models.ToolCallResponse {
	response := &models.ToolCallResponse{Results: make([]models.ToolCallResult, 0, len(envelope.Message.ToolCalls))}

	userID := s.resolveUser(ctx, envelope.Message.Call.AssistantID)

	for _, call := range envelope.Message.ToolCalls {
		name := call.Function.Name
		result, err := s.run(ctx, userID, name, call.Function.Arguments)
		if err != nil {
			s.logger.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			result = fmt.Sprintf("Sorry, I could not complete that right now. (%s did not succeed)", strings.ReplaceAll(name, "_", " "))
		}
		response.Results = append(response.Results, models.ToolCallResult{
			ToolCallID: call.ID,
			Result:     result,
		})
	}

	return response
}

func (s *Service) run(ctx context.Context, userID, name string, args json.RawMessage) (string, error) {
	s.logger.Info().Str("tool", name).Str("user_id", userID).Msg("Dispatching tool call")

	// Prefer the user's own Google token for maps calls. Absence does not
	// gate the tool; the shared API key still authenticates.
	if userID != "" && s.tokens != nil {
		if token, err := s.tokens.GetValidAccessToken(ctx, userID); err != nil {
			s.logger.Debug().Err(err).Str("user_id", userID).Msg("No usable Google token for tool call")
		} else {
			ctx = maps.WithAccessToken(ctx, token)
		}
	}

	switch name {
	case ToolFindClosestLocation:
		return s.findClosestLocation(ctx, userID, args)
	case ToolFindRoute:
		return s.findRoute(ctx, args)
	case ToolGetLocationInfo:
		return s.getLocationInfo(ctx, args)
	case ToolBrowserAutomation:
		return s.browserAutomation(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

type closestLocationArgs struct {
	Location string `json:"location"`
	Query    string `json:"query"`
}

func (s *Service) findClosestLocation(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args closestLocationArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Location == "" || args.Query == "" {
		return "", fmt.Errorf("location and query are required")
	}

	origin, err := s.maps.Geocode(ctx, args.Location)
	if err != nil {
		return "", fmt.Errorf("failed to geocode %q: %w", args.Location, err)
	}

	places, err := s.maps.NearbySearch(ctx, origin.Location, args.Query, 5000)
	if err != nil {
		return "", fmt.Errorf("nearby search failed: %w", err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("I could not find any %s near %s.", args.Query, origin.FormattedAddress), nil
	}

	for i := range places {
		places[i].DistanceKm = HaversineKm(origin.Location, places[i].Location)
	}
	sort.Slice(places, func(i, j int) bool {
		return places[i].DistanceKm < places[j].DistanceKm
	})
	if len(places) > closestResultLimit {
		places = places[:closestResultLimit]
	}

	closest := places[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "📍 The closest %s is %s, about %.1f kilometers away", args.Query, closest.Name, closest.DistanceKm)
	if closest.FormattedAddress != "" {
		fmt.Fprintf(&sb, ", at %s", closest.FormattedAddress)
	}
	sb.WriteString(".")
	if len(places) > 1 {
		names := make([]string, 0, len(places)-1)
		for _, p := range places[1:] {
			names = append(names, fmt.Sprintf("%s (%.1f km)", p.Name, p.DistanceKm))
		}
		fmt.Fprintf(&sb, " Other options nearby: %s.", strings.Join(names, ", "))
	}

	s.emailResults(ctx, userID, fmt.Sprintf("Closest %s near %s", args.Query, args.Location), places, origin)

	return sb.String(), nil
}

type findRouteArgs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`
}

func (s *Service) findRoute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args findRouteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Origin == "" || args.Destination == "" {
		return "", fmt.Errorf("origin and destination are required")
	}

	route, err := s.maps.Directions(ctx, args.Origin, args.Destination, &models.DirectionsOptions{Mode: args.Mode})
	if err != nil {
		return "", fmt.Errorf("directions lookup failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗺️ The trip from %s to %s is %s and takes about %s", route.StartAddress, route.EndAddress, route.Distance, route.Duration)
	if route.Summary != "" {
		fmt.Fprintf(&sb, " via %s", route.Summary)
	}
	sb.WriteString(".")

	if len(route.Steps) > 0 {
		limit := len(route.Steps)
		if limit > 3 {
			limit = 3
		}
		steps := make([]string, 0, limit)
		for _, step := range route.Steps[:limit] {
			steps = append(steps, step.Instruction)
		}
		fmt.Fprintf(&sb, " Start with: %s.", strings.Join(steps, "; then "))
	}

	return sb.String(), nil
}

type locationInfoArgs struct {
	Query string `json:"query"`
}

func (s *Service) getLocationInfo(ctx context.Context, raw json.RawMessage) (string, error) {
	var args locationInfoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	places, err := s.maps.TextSearch(ctx, args.Query)
	if err != nil {
		return "", fmt.Errorf("place search failed: %w", err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("I could not find a place matching %q.", args.Query), nil
	}

	details, err := s.maps.PlaceDetails(ctx, places[0].PlaceID)
	if err != nil {
		return "", fmt.Errorf("place details lookup failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ℹ️ %s is at %s", details.Name, details.FormattedAddress)
	if details.PhoneNumber != "" {
		fmt.Fprintf(&sb, ", phone %s", details.PhoneNumber)
	}
	if details.Rating > 0 {
		fmt.Fprintf(&sb, ", rated %.1f stars", details.Rating)
	}
	sb.WriteString(".")
	if details.OpenNow != nil {
		if *details.OpenNow {
			sb.WriteString(" It is open right now.")
		} else {
			sb.WriteString(" It is currently closed.")
		}
	}

	return sb.String(), nil
}

type automationArgs struct {
	Task string `json:"task"`
	URL  string `json:"url"`
}

func (s *Service) browserAutomation(ctx context.Context, raw json.RawMessage) (string, error) {
	var args automationArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Task == "" {
		return "", fmt.Errorf("task is required")
	}
	if s.automation == nil || s.automation.Endpoint == "" {
		return "", fmt.Errorf("automation endpoint is not configured")
	}

	payload, err := json.Marshal(map[string]string{"task": args.Task, "url": args.URL})
	if err != nil {
		return "", fmt.Errorf("failed to encode automation task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.automation.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build automation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("automation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("automation service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Result != "" {
		return "🤖 " + result.Result, nil
	}
	return "🤖 The web task was completed.", nil
}

// resolveUser maps the calling assistant back to the owning user
func (s *Service) resolveUser(ctx context.Context, assistantID string) string {
	if assistantID == "" || s.agents == nil {
		return ""
	}
	agent, err := s.agents.GetAgentByAssistantID(ctx, assistantID)
	if err != nil {
		s.logger.Debug().Err(err).Str("assistant_id", assistantID).Msg("No agent found for assistant")
		return ""
	}
	return agent.UserID
}

// emailResults sends the place list to the user's email, best effort
func (s *Service) emailResults(ctx context.Context, userID, subject string, places []models.PlaceResult, origin *models.GeocodeResult) {
	if s.mailer == nil || s.users == nil || userID == "" {
		return
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil || user.Email == "" {
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Results near %s:\n\n", origin.FormattedAddress)
	var htmlBody strings.Builder
	fmt.Fprintf(&htmlBody, "<h2>Results near %s</h2><ol>", html.EscapeString(origin.FormattedAddress))
	for _, p := range places {
		fmt.Fprintf(&text, "- %s (%.1f km) %s\n", p.Name, p.DistanceKm, p.FormattedAddress)
		fmt.Fprintf(&htmlBody, "<li><b>%s</b> (%.1f km)<br>%s</li>", html.EscapeString(p.Name), p.DistanceKm, html.EscapeString(p.FormattedAddress))
	}
	htmlBody.WriteString("</ol>")

	if err := s.mailer.Send(ctx, user.Email, subject, text.String(), htmlBody.String()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to email tool results")
	}
}
