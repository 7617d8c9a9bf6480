// Package voice provides a client for the Vapi voice platform API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the Vapi API
	DefaultBaseURL = "https://api.vapi.ai"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
)

// APIError represents an error response from the voice platform
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice platform API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client is a Vapi API client
type Client struct {
	baseURL       string
	apiKey        string
	phoneNumberID string
	httpClient    *http.Client
	logger        arbor.ILogger
	limiter       *rate.Limiter
}

// NewClient creates a new voice platform client from configuration
func NewClient(config *common.VoiceConfig, logger arbor.ILogger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := config.RateLimit
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        config.APIKey,
		phoneNumberID: config.PhoneNumberID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// PhoneNumberID returns the configured outbound phone number id
func (c *Client) PhoneNumberID() string {
	return c.phoneNumberID
}

// CreateAssistant registers a new assistant on the platform
func (c *Client) CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (*Assistant, error) {
	var assistant Assistant
	if err := c.do(ctx, http.MethodPost, "/assistant", req, &assistant); err != nil {
		return nil, err
	}
	c.logger.Info().Str("assistant_id", assistant.ID).Str("name", assistant.Name).Msg("Assistant created")
	return &assistant, nil
}

// GetAssistant fetches an assistant by id
func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	var assistant Assistant
	if err := c.do(ctx, http.MethodGet, "/assistant/"+id, nil, &assistant); err != nil {
		return nil, err
	}
	return &assistant, nil
}

// UpdateAssistant patches an existing assistant
func (c *Client) UpdateAssistant(ctx context.Context, id string, req *CreateAssistantRequest) (*Assistant, error) {
	var assistant Assistant
	if err := c.do(ctx, http.MethodPatch, "/assistant/"+id, req, &assistant); err != nil {
		return nil, err
	}
	return &assistant, nil
}

// ListAssistants returns all assistants in the account
func (c *Client) ListAssistants(ctx context.Context) ([]Assistant, error) {
	var assistants []Assistant
	if err := c.do(ctx, http.MethodGet, "/assistant", nil, &assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

// DeleteAssistant removes an assistant from the platform
func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/assistant/"+id, nil, nil)
}

// CreateCall starts an outbound call through the configured phone number
func (c *Client) CreateCall(ctx context.Context, req *CreateCallRequest) (*Call, error) {
	if req.PhoneNumberID == "" {
		req.PhoneNumberID = c.phoneNumberID
	}

	var call Call
	if err := c.do(ctx, http.MethodPost, "/call", req, &call); err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("call_id", call.ID).
		Str("assistant_id", req.AssistantID).
		Msg("Outbound call created")
	return &call, nil
}

// GetCall fetches a call record by id
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	var call Call
	if err := c.do(ctx, http.MethodGet, "/call/"+id, nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// ListCalls returns the platform's call records
func (c *Client) ListCalls(ctx context.Context) ([]Call, error) {
	var calls []Call
	if err := c.do(ctx, http.MethodGet, "/call", nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// ListPhoneNumbers returns the provisioned phone numbers
func (c *Client) ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var numbers []PhoneNumber
	if err := c.do(ctx, http.MethodGet, "/phone-number", nil, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

// CreateTool registers a function tool on the platform
func (c *Client) CreateTool(ctx context.Context, tool *Tool) (*Tool, error) {
	var created Tool
	if err := c.do(ctx, http.MethodPost, "/tool", tool, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTool removes a registered tool
func (c *Client) DeleteTool(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tool/"+id, nil, nil)
}

// ListTools returns all registered tools
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	if err := c.do(ctx, http.MethodGet, "/tool", nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// UploadFile uploads a knowledge file as multipart form data
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(raw), Endpoint: "/file"}
	}

	var file File
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info().Str("file_id", file.ID).Str("name", filename).Msg("File uploaded")
	return &file, nil
}

// do performs a rate limited JSON request against the platform API
func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Voice platform API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(raw), Endpoint: path}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
