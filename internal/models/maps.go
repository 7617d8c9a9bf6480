package models

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeocodeResult is a resolved address with its coordinate
type GeocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Location         LatLng `json:"location"`
	LocationType     string `json:"location_type,omitempty"`
}

// PlaceResult is a single entry from a place search
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Location         LatLng   `json:"location"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	PriceLevel       int      `json:"price_level,omitempty"`
	Types            []string `json:"types,omitempty"`
	OpenNow          *bool    `json:"open_now,omitempty"`
	// DistanceKm is computed client-side relative to the search origin
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// PlaceDetails extends a place result with contact information
type PlaceDetails struct {
	PlaceResult
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Website      string   `json:"website,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty"`
}

// RouteStep is a single navigation instruction
type RouteStep struct {
	Instruction string `json:"instruction"`
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
}

// Route summarizes a directions response
type Route struct {
	Summary      string      `json:"summary"`
	Distance     string      `json:"distance"`
	Duration     string      `json:"duration"`
	StartAddress string      `json:"start_address"`
	EndAddress   string      `json:"end_address"`
	Steps        []RouteStep `json:"steps"`
}

// DirectionsOptions customizes a directions request
type DirectionsOptions struct {
	Mode  string `json:"mode,omitempty"`  // driving, walking, bicycling, transit
	Avoid string `json:"avoid,omitempty"` // tolls, highways, ferries
	Units string `json:"units,omitempty"` // metric or imperial
}
