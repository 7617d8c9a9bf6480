package interfaces

import (
	"context"

	"github.com/parlo-ai/parlo/internal/models"
)

// MapsService is the Google Maps adapter surface used by call tools
type MapsService interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, location models.LatLng) (*models.GeocodeResult, error)
	TextSearch(ctx context.Context, query string) ([]models.PlaceResult, error)
	NearbySearch(ctx context.Context, location models.LatLng, keyword string, radiusMeters int) ([]models.PlaceResult, error)
	PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)
	Directions(ctx context.Context, origin, destination string, opts *models.DirectionsOptions) (*models.Route, error)
	StaticMapURL(location models.LatLng, zoom, width, height int) string
	TestConnection(ctx context.Context) error
}

// Mailer sends result emails to users
type Mailer interface {
	// Send delivers a multipart plain/HTML email. htmlBody may be empty.
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// SummaryFormatter turns a raw call transcript into a short summary
type SummaryFormatter interface {
	FormatSummary(ctx context.Context, transcript string) (string, error)
}
