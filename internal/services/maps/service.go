package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

type tokenContextKey struct{}

// WithAccessToken returns a context carrying a user's OAuth access token.
// Requests made with it authenticate with the token instead of the shared
// API key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func accessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// htmlTagPattern strips markup from direction step instructions
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Service is the Google Maps web service adapter used by call tools.
// Requests are rate limited to respect Google API quotas.
type Service struct {
	config     *common.MapsConfig
	logger     arbor.ILogger
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewService creates a new Maps service instance
func NewService(
	config *common.MapsConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *Service {
	// Resolve API key with KV-first resolution order: KV store -> config fallback
	apiKey, err := common.ResolveAPIKey(context.Background(), kvStorage, "google-maps", config.APIKey)
	if err != nil {
		apiKey = config.APIKey
		logger.Warn().Err(err).Msg("Failed to resolve API key from KV store, using config value")
	}

	interval := config.RateLimit
	if interval <= 0 {
		interval = time.Second
	}

	return &Service{
		config: config,
		logger: logger,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		baseURL: defaultBaseURL,
	}
}

// Geocode resolves an address string to coordinates
func (s *Service) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address is required")
	}

	params := url.Values{}
	params.Set("address", address)

	var resp geocodeResponse
	if err := s.call(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no results for address: %s", address)
	}

	entry := resp.Results[0]
	return &models.GeocodeResult{
		FormattedAddress: entry.FormattedAddress,
		PlaceID:          entry.PlaceID,
		Location:         models.LatLng{Lat: entry.Geometry.Location.Lat, Lng: entry.Geometry.Location.Lng},
		LocationType:     entry.Geometry.LocationType,
	}, nil
}

// ReverseGeocode resolves coordinates to the nearest address
func (s *Service) ReverseGeocode(ctx context.Context, location models.LatLng) (*models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", location.Lat, location.Lng))

	var resp geocodeResponse
	if err := s.call(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no address found at %f,%f", location.Lat, location.Lng)
	}

	entry := resp.Results[0]
	return &models.GeocodeResult{
		FormattedAddress: entry.FormattedAddress,
		PlaceID:          entry.PlaceID,
		Location:         models.LatLng{Lat: entry.Geometry.Location.Lat, Lng: entry.Geometry.Location.Lng},
		LocationType:     entry.Geometry.LocationType,
	}, nil
}

// TextSearch performs a free-text place search
func (s *Service) TextSearch(ctx context.Context, query string) ([]models.PlaceResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp placesSearchResponse
	if err := s.call(ctx, "/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	results := s.capResults(resp.Results)

	s.logger.Info().
		Str("query", query).
		Int("results_count", len(results)).
		Str("status", resp.Status).
		Msg("Place text search completed")

	return convertPlaces(results), nil
}

// NearbySearch finds places of a given type around a coordinate.
// radiusMeters of zero falls back to a 5km radius.
func (s *Service) NearbySearch(ctx context.Context, location models.LatLng, keyword string, radiusMeters int) ([]models.PlaceResult, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", location.Lat, location.Lng))
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	var resp placesSearchResponse
	if err := s.call(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	results := s.capResults(resp.Results)

	s.logger.Info().
		Str("keyword", keyword).
		Float64("latitude", location.Lat).
		Float64("longitude", location.Lng).
		Int("radius", radiusMeters).
		Int("results_count", len(results)).
		Str("status", resp.Status).
		Msg("Place nearby search completed")

	return convertPlaces(results), nil
}

// PlaceDetails fetches contact details for a place id
func (s *Service) PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,geometry,rating,user_ratings_total,price_level,types,opening_hours,formatted_phone_number,website")

	var resp placeDetailsResponse
	if err := s.call(ctx, "/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	details := &models.PlaceDetails{
		PlaceResult: convertPlace(resp.Result.placeEntry),
		PhoneNumber: resp.Result.FormattedPhoneNumber,
		Website:     resp.Result.Website,
	}
	if resp.Result.OpeningHours != nil {
		details.OpeningHours = resp.Result.OpeningHours.WeekdayText
	}
	return details, nil
}

// Directions returns the best route between two addresses
func (s *Service) Directions(ctx context.Context, origin, destination string, opts *models.DirectionsOptions) (*models.Route, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	if opts != nil {
		if opts.Mode != "" {
			params.Set("mode", opts.Mode)
		}
		if opts.Avoid != "" {
			params.Set("avoid", opts.Avoid)
		}
		if opts.Units != "" {
			params.Set("units", opts.Units)
		}
	}

	var resp directionsResponse
	if err := s.call(ctx, "/directions/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found from %q to %q", origin, destination)
	}

	apiRoute := resp.Routes[0]
	leg := apiRoute.Legs[0]

	route := &models.Route{
		Summary:      apiRoute.Summary,
		Distance:     leg.Distance.Text,
		Duration:     leg.Duration.Text,
		StartAddress: leg.StartAddress,
		EndAddress:   leg.EndAddress,
		Steps:        make([]models.RouteStep, 0, len(leg.Steps)),
	}
	for _, step := range leg.Steps {
		route.Steps = append(route.Steps, models.RouteStep{
			Instruction: stripHTML(step.HTMLInstructions),
			Distance:    step.Distance.Text,
			Duration:    step.Duration.Text,
		})
	}
	return route, nil
}

// StaticMapURL builds a static map image URL centered on a location.
// The URL embeds the API key; callers must not log it.
func (s *Service) StaticMapURL(location models.LatLng, zoom, width, height int) string {
	if zoom <= 0 {
		zoom = 15
	}
	if width <= 0 {
		width = 600
	}
	if height <= 0 {
		height = 400
	}

	params := url.Values{}
	params.Set("center", fmt.Sprintf("%f,%f", location.Lat, location.Lng))
	params.Set("zoom", fmt.Sprintf("%d", zoom))
	params.Set("size", fmt.Sprintf("%dx%d", width, height))
	params.Set("markers", fmt.Sprintf("color:red|%f,%f", location.Lat, location.Lng))
	params.Set("key", s.apiKey)

	return fmt.Sprintf("%s/staticmap?%s", s.baseURL, params.Encode())
}

// TestConnection verifies the API key with a minimal geocode request
func (s *Service) TestConnection(ctx context.Context) error {
	_, err := s.Geocode(ctx, "1600 Amphitheatre Parkway, Mountain View, CA")
	if err != nil {
		return fmt.Errorf("maps connection test failed: %w", err)
	}
	return nil
}

// call performs a rate limited GET against the Maps API and decodes the
// JSON body into out
func (s *Service) call(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	authParam := "key"
	if token := accessTokenFrom(ctx); token != "" {
		authParam = "access_token"
		params.Set(authParam, token)
	} else {
		params.Set(authParam, s.apiKey)
	}
	fullURL := fmt.Sprintf("%s%s?%s", s.baseURL, path, params.Encode())

	// Redact the credential in logs. Copied so the caller's params keep
	// the real value.
	redacted := make(url.Values, len(params))
	for key, values := range params {
		redacted[key] = values
	}
	redacted.Set(authParam, "***REDACTED***")
	s.logger.Debug().Str("url", fmt.Sprintf("%s%s?%s", s.baseURL, path, redacted.Encode())).Msg("Calling Google Maps API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Google Maps API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Google Maps API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

func (s *Service) capResults(results []placeEntry) []placeEntry {
	max := s.config.MaxResults
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}

func checkStatus(status, errorMessage string) error {
	if status != "OK" && status != "ZERO_RESULTS" {
		return fmt.Errorf("API error: %s - %s", status, errorMessage)
	}
	return nil
}

func convertPlaces(entries []placeEntry) []models.PlaceResult {
	results := make([]models.PlaceResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, convertPlace(entry))
	}
	return results
}

func convertPlace(entry placeEntry) models.PlaceResult {
	address := entry.FormattedAddress
	if address == "" {
		address = entry.Vicinity
	}

	result := models.PlaceResult{
		PlaceID:          entry.PlaceID,
		Name:             entry.Name,
		FormattedAddress: address,
		Location:         models.LatLng{Lat: entry.Geometry.Location.Lat, Lng: entry.Geometry.Location.Lng},
		Rating:           entry.Rating,
		UserRatingsTotal: entry.UserRatingsTotal,
		PriceLevel:       entry.PriceLevel,
		Types:            entry.Types,
	}
	if entry.OpeningHours != nil {
		result.OpenNow = entry.OpeningHours.OpenNow
	}
	return result
}

func stripHTML(instruction string) string {
	plain := htmlTagPattern.ReplaceAllString(instruction, " ")
	return strings.Join(strings.Fields(plain), " ")
}
