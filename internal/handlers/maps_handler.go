package handlers

import (
	"net/http"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// MapsHandler exposes Google Maps connectivity checks and geocoding
type MapsHandler struct {
	maps   interfaces.MapsService
	logger arbor.ILogger
}

// NewMapsHandler creates a new maps handler
func NewMapsHandler(mapsService interfaces.MapsService, logger arbor.ILogger) *MapsHandler {
	return &MapsHandler{
		maps:   mapsService,
		logger: logger,
	}
}

// TestHandler verifies the Maps API key by geocoding a known address
func (h *MapsHandler) TestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	if err := h.maps.TestConnection(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Maps connection test failed")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

type geocodeRequest struct {
	Address string `json:"address"`
}

// GeocodeHandler resolves an address to coordinates
func (h *MapsHandler) GeocodeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	var req geocodeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.maps.Geocode(r.Context(), req.Address)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
