package handlers

import (
	"io"
	"net/http"

	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/ternarybob/arbor"
)

// maxUploadBytes caps knowledge file uploads at 20 MB
const maxUploadBytes = 20 << 20

// FileHandler passes uploaded documents through to the voice platform's
// file API, which extracts their text content
type FileHandler struct {
	voice  *voice.Client
	logger arbor.ILogger
}

// NewFileHandler creates a new file handler
func NewFileHandler(voiceClient *voice.Client, logger arbor.ILogger) *FileHandler {
	return &FileHandler{
		voice:  voiceClient,
		logger: logger,
	}
}

// ExtractHandler serves POST /api/files/extract. The multipart "file" part
// is uploaded to the platform and the extracted markdown is returned.
func (h *FileHandler) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	uploaded, err := h.voice.UploadFile(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("File upload failed")
		WriteError(w, http.StatusBadGateway, "file extraction failed")
		return
	}

	markdown := ""
	if uploaded.ParsedTextURL != "" {
		markdown, err = h.fetchParsedText(r, uploaded.ParsedTextURL)
		if err != nil {
			h.logger.Warn().Err(err).Str("file_id", uploaded.ID).Msg("Failed to fetch parsed text")
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"file_id":  uploaded.ID,
		"name":     uploaded.Name,
		"markdown": markdown,
	})
}

func (h *FileHandler) fetchParsedText(r *http.Request, parsedURL string) (string, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, parsedURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
