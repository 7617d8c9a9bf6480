package tools

import (
	"context"
	"fmt"

	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/ternarybob/arbor"
)

// Tool names dispatched by the webhook handler
const (
	ToolFindClosestLocation = "find_closest_location"
	ToolFindRoute           = "find_route"
	ToolGetLocationInfo     = "get_location_info"
	ToolBrowserAutomation   = "browser_automation"
)

// toolSpecs returns the platform tool definitions, all pointing at the
// given webhook URL
func toolSpecs(serverURL string) []voice.Tool {
	server := &voice.ToolServer{URL: serverURL, TimeoutSeconds: 30}

	return []voice.Tool{
		{
			Type:   "function",
			Server: server,
			Function: &voice.ToolFunction{
				Name:        ToolFindClosestLocation,
				Description: "Find the closest place of a given kind near a location, for example the closest pharmacy to an address.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"location": map[string]interface{}{
							"type":        "string",
							"description": "The address or area to search around",
						},
						"query": map[string]interface{}{
							"type":        "string",
							"description": "What kind of place to look for, for example cafe or pharmacy",
						},
					},
					"required": []string{"location", "query"},
				},
			},
		},
		{
			Type:   "function",
			Server: server,
			Function: &voice.ToolFunction{
				Name:        ToolFindRoute,
				Description: "Get directions between two addresses.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"origin": map[string]interface{}{
							"type":        "string",
							"description": "The starting address",
						},
						"destination": map[string]interface{}{
							"type":        "string",
							"description": "The destination address",
						},
						"mode": map[string]interface{}{
							"type":        "string",
							"description": "Travel mode: driving, walking, bicycling or transit",
						},
					},
					"required": []string{"origin", "destination"},
				},
			},
		},
		{
			Type:   "function",
			Server: server,
			Function: &voice.ToolFunction{
				Name:        ToolGetLocationInfo,
				Description: "Look up details about a specific place, such as its address, phone number and opening hours.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The name of the place, optionally with a suburb or city",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type:   "function",
			Server: server,
			Function: &voice.ToolFunction{
				Name:        ToolBrowserAutomation,
				Description: "Perform a web task on behalf of the caller, such as filling a booking form.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"task": map[string]interface{}{
							"type":        "string",
							"description": "A plain description of the web task to perform",
						},
						"url": map[string]interface{}{
							"type":        "string",
							"description": "The website to perform the task on, if known",
						},
					},
					"required": []string{"task"},
				},
			},
		},
	}
}

// EnsureTools registers any missing platform tools and returns the ids of
// all tools by name. Existing tools are matched by function name and left
// untouched.
func EnsureTools(ctx context.Context, client *voice.Client, serverURL string, logger arbor.ILogger) (map[string]string, error) {
	existing, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list platform tools: %w", err)
	}

	byName := make(map[string]string)
	for _, tool := range existing {
		if tool.Function != nil {
			byName[tool.Function.Name] = tool.ID
		}
	}

	for _, spec := range toolSpecs(serverURL) {
		name := spec.Function.Name
		if _, ok := byName[name]; ok {
			continue
		}

		created, err := client.CreateTool(ctx, &spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool %s: %w", name, err)
		}
		byName[name] = created.ID
		logger.Info().Str("tool", name).Str("tool_id", created.ID).Msg("Platform tool registered")
	}

	return byName, nil
}
