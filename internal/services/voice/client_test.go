package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&common.VoiceConfig{
		APIKey:         "vapi-key",
		BaseURL:        server.URL,
		PhoneNumberID:  "pn_1",
		RequestTimeout: 5 * time.Second,
		RateLimit:      time.Millisecond,
	}, arbor.NewLogger())
}

func TestCreateAssistant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		assert.Equal(t, "Bearer vapi-key", r.Header.Get("Authorization"))

		var req CreateAssistantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Booking Agent", req.Name)

		_ = json.NewEncoder(w).Encode(Assistant{ID: "asst_1", Name: req.Name})
	})

	assistant, err := client.CreateAssistant(context.Background(), &CreateAssistantRequest{
		Name:         "Booking Agent",
		FirstMessage: "Hi, I am calling to book a table.",
	})
	require.NoError(t, err)
	assert.Equal(t, "asst_1", assistant.ID)
}

func TestCreateCallDefaultsPhoneNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req CreateCallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pn_1", req.PhoneNumberID)
		assert.Equal(t, "+61400000000", req.Customer.Number)

		_ = json.NewEncoder(w).Encode(Call{ID: "call_1", Status: "queued"})
	})

	call, err := client.CreateCall(context.Background(), &CreateCallRequest{
		AssistantID: "asst_1",
		Customer:    &Customer{Number: "+61400000000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "queued", call.Status)
}

func TestAPIErrorSurfacesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	})

	_, err := client.GetAssistant(context.Background(), "asst_1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid api key")
}

func TestUploadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "menu.pdf", header.Filename)

		_ = json.NewEncoder(w).Encode(File{ID: "file_1", Name: header.Filename})
	})

	uploaded, err := client.UploadFile(context.Background(), "menu.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, "file_1", uploaded.ID)
}

func TestListAssistants(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Assistant{
			{ID: "asst_1", Name: "Booking Agent"},
			{ID: "asst_2", Name: "Support Agent"},
		})
	})

	assistants, err := client.ListAssistants(context.Background())
	require.NoError(t, err)
	require.Len(t, assistants, 2)
	assert.Equal(t, "asst_2", assistants[1].ID)
}

func TestListCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/call", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Call{{ID: "call_1", Status: "ended"}})
	})

	calls, err := client.ListCalls(context.Background())
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "ended", calls[0].Status)
}

func TestListPhoneNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/phone-number", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]PhoneNumber{{ID: "pn_1", Number: "+61280000000"}})
	})

	numbers, err := client.ListPhoneNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, numbers, 1)
	assert.Equal(t, "+61280000000", numbers[0].Number)
}

func TestDeleteTool(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/tool/tool_1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.DeleteTool(context.Background(), "tool_1"))
}

func TestDeleteAssistant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/assistant/asst_1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.DeleteAssistant(context.Background(), "asst_1"))
}
