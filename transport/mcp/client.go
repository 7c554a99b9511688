package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"wsbridge",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`wsbridge - MCP admin interface

This is a thin client that proxies all requests to the REST API of a running
wsbridge demo server.

AVAILABLE TOOLS:
- list_clients: List the clients currently registered with the bridge
- send_message: Send a text message to one client by id
- broadcast: Send a text message to every registered client
- room_status: Show room members and the recent transcript`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_clients",
		Description: "List the clients currently registered with the bridge",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListClients)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_message",
		Description: "Send a text message to one client",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": map[string]interface{}{
					"type":        "string",
					"description": "Target client id (see list_clients)",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Text payload to deliver",
				},
			},
			Required: []string{"client_id", "message"},
		},
	}, c.handleSendMessage)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "broadcast",
		Description: "Send a text message to every registered client",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Text payload to deliver",
				},
			},
			Required: []string{"message"},
		},
	}, c.handleBroadcast)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_status",
		Description: "Show room members and the recent transcript",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRoomStatus)
}

// apiCall performs a JSON request against the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int `json:"count"`
		Clients []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"clients"`
	}

	err := c.apiCall("GET", "/api/clients", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Registered clients (%d):\n\n", response.Count)
	for _, cl := range response.Clients {
		result += fmt.Sprintf("- %s (%s)\n", cl.Name, cl.ID)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	clientID, _ := args["client_id"].(string)
	message, _ := args["message"].(string)

	body := map[string]string{"message": message}
	err := c.apiCall("POST", fmt.Sprintf("/api/clients/%s/message", clientID), body, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Delivered to %s", clientID)), nil
}

func (c *Client) handleBroadcast(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	message, _ := args["message"].(string)

	var response struct {
		Recipients int `json:"recipients"`
	}
	err := c.apiCall("POST", "/api/broadcast", map[string]string{"message": message}, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Broadcast to %d clients", response.Recipients)), nil
}

func (c *Client) handleRoomStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Members []string `json:"members"`
		History []string `json:"history"`
	}

	err := c.apiCall("GET", "/api/room", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Members (%d): %s\n\nTranscript:\n", len(response.Members), strings.Join(response.Members, ", "))
	for _, line := range response.History {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	return mcp.NewToolResultText(b.String()), nil
}
