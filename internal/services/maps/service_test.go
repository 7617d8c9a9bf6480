package maps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestMaps(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := &common.MapsConfig{
		APIKey:         "test-key",
		RateLimit:      time.Millisecond,
		RequestTimeout: 5 * time.Second,
		MaxResults:     3,
	}
	svc := NewService(config, nil, arbor.NewLogger())
	svc.baseURL = server.URL
	return svc, server
}

func TestGeocode(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Sydney Opera House", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"results": []map[string]interface{}{{
				"formatted_address": "Bennelong Point, Sydney NSW 2000, Australia",
				"place_id":          "ChIJ3S-JXmauEmsRUcIaWtf4MzE",
				"geometry": map[string]interface{}{
					"location":      map[string]float64{"lat": -33.8568, "lng": 151.2153},
					"location_type": "ROOFTOP",
				},
			}},
		})
	})

	result, err := svc.Geocode(context.Background(), "Sydney Opera House")
	require.NoError(t, err)
	assert.Equal(t, "ChIJ3S-JXmauEmsRUcIaWtf4MzE", result.PlaceID)
	assert.InDelta(t, -33.8568, result.Location.Lat, 0.0001)
	assert.Equal(t, "ROOFTOP", result.LocationType)
}

func TestGeocodePrefersContextAccessToken(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ya29.user-token", r.URL.Query().Get("access_token"))
		assert.Empty(t, r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"results": []map[string]interface{}{{
				"formatted_address": "Bennelong Point, Sydney NSW 2000, Australia",
				"place_id":          "ChIJ3S-JXmauEmsRUcIaWtf4MzE",
				"geometry": map[string]interface{}{
					"location": map[string]float64{"lat": -33.8568, "lng": 151.2153},
				},
			}},
		})
	})

	ctx := WithAccessToken(context.Background(), "ya29.user-token")
	result, err := svc.Geocode(ctx, "Sydney Opera House")
	require.NoError(t, err)
	assert.Equal(t, "ChIJ3S-JXmauEmsRUcIaWtf4MzE", result.PlaceID)
}

func TestGeocodeRejectsEmptyAddress(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := svc.Geocode(context.Background(), "   ")
	assert.Error(t, err)
}

func TestGeocodeSurfacesAPIError(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "REQUEST_DENIED",
			"error_message": "The provided API key is invalid.",
		})
	})

	_, err := svc.Geocode(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestNearbySearchCapsResults(t *testing.T) {
	entries := make([]map[string]interface{}, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, map[string]interface{}{
			"place_id": "place",
			"name":     "Cafe",
			"vicinity": "12 Example St",
			"geometry": map[string]interface{}{
				"location": map[string]float64{"lat": 1, "lng": 2},
			},
		})
	}
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "5000", r.URL.Query().Get("radius")) // default radius
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "OK",
			"results": entries,
		})
	})

	results, err := svc.NearbySearch(context.Background(), models.LatLng{Lat: 1, Lng: 2}, "cafe", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3) // MaxResults from config
	assert.Equal(t, "12 Example St", results[0].FormattedAddress)
}

func TestTextSearchZeroResults(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ZERO_RESULTS",
			"results": []interface{}{},
		})
	})

	results, err := svc.TextSearch(context.Background(), "nonexistent place")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDirectionsStripsMarkup(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/json", r.URL.Path)
		assert.Equal(t, "walking", r.URL.Query().Get("mode"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"routes": []map[string]interface{}{{
				"summary": "George St",
				"legs": []map[string]interface{}{{
					"distance":      map[string]interface{}{"text": "1.2 km", "value": 1200},
					"duration":      map[string]interface{}{"text": "15 mins", "value": 900},
					"start_address": "A",
					"end_address":   "B",
					"steps": []map[string]interface{}{{
						"html_instructions": "Turn <b>left</b> onto <div>George St</div>",
						"distance":          map[string]interface{}{"text": "200 m", "value": 200},
						"duration":          map[string]interface{}{"text": "3 mins", "value": 180},
					}},
				}},
			}},
		})
	})

	route, err := svc.Directions(context.Background(), "A", "B", &models.DirectionsOptions{Mode: "walking"})
	require.NoError(t, err)
	assert.Equal(t, "1.2 km", route.Distance)
	require.Len(t, route.Steps, 1)
	assert.Equal(t, "Turn left onto George St", route.Steps[0].Instruction)
}

func TestDirectionsNoRoute(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"routes": []interface{}{},
		})
	})

	_, err := svc.Directions(context.Background(), "A", "B", nil)
	assert.Error(t, err)
}

func TestCallKeepsCredentialInCallerParams(t *testing.T) {
	svc, _ := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ZERO_RESULTS",
			"results": []interface{}{},
		})
	})

	params := url.Values{}
	params.Set("query", "cafe")
	var resp placesSearchResponse
	require.NoError(t, svc.call(context.Background(), "/place/textsearch/json", params, &resp))

	// The log redaction must not leak into the params the caller handed in
	assert.Equal(t, "test-key", params.Get("key"))
}

func TestStaticMapURL(t *testing.T) {
	svc, server := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {})

	mapURL := svc.StaticMapURL(models.LatLng{Lat: -33.85, Lng: 151.21}, 0, 0, 0)
	assert.True(t, strings.HasPrefix(mapURL, server.URL+"/staticmap?"))
	assert.Contains(t, mapURL, "zoom=15")
	assert.Contains(t, mapURL, "size=600x400")
	assert.Contains(t, mapURL, "key=test-key")
}
