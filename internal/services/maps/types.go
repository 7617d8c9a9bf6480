package maps

// Wire types for the Google Maps web service JSON responses.
// Only the fields the adapter reads are declared.

type apiLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type apiGeometry struct {
	Location     apiLatLng `json:"location"`
	LocationType string    `json:"location_type,omitempty"`
}

type apiOpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

type geocodeEntry struct {
	FormattedAddress string      `json:"formatted_address"`
	PlaceID          string      `json:"place_id"`
	Geometry         apiGeometry `json:"geometry"`
}

type geocodeResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Results      []geocodeEntry `json:"results"`
}

type placeEntry struct {
	PlaceID          string           `json:"place_id"`
	Name             string           `json:"name"`
	FormattedAddress string           `json:"formatted_address"`
	Vicinity         string           `json:"vicinity"`
	Geometry         apiGeometry      `json:"geometry"`
	Rating           float64          `json:"rating"`
	UserRatingsTotal int              `json:"user_ratings_total"`
	PriceLevel       int              `json:"price_level"`
	Types            []string         `json:"types"`
	OpeningHours     *apiOpeningHours `json:"opening_hours,omitempty"`
}

type placesSearchResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Results      []placeEntry `json:"results"`
}

type placeDetailsEntry struct {
	placeEntry
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
}

type placeDetailsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Result       placeDetailsEntry `json:"result"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type apiStep struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         textValue `json:"distance"`
	Duration         textValue `json:"duration"`
}

type apiLeg struct {
	Distance     textValue `json:"distance"`
	Duration     textValue `json:"duration"`
	StartAddress string    `json:"start_address"`
	EndAddress   string    `json:"end_address"`
	Steps        []apiStep `json:"steps"`
}

type apiRoute struct {
	Summary string   `json:"summary"`
	Legs    []apiLeg `json:"legs"`
}

type directionsResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Routes       []apiRoute `json:"routes"`
}
