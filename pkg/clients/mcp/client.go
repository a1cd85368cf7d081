// Package mcp provides an HTTP client for an MCP gateway that fronts a set of
// named tool servers. It is the live-environment side of recording and
// replay: tool invocations go through InvokeTool, and replay validation
// consults CheckResource.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// ClientInterface defines the operations the gateway exposes
type ClientInterface interface {
	InvokeTool(ctx context.Context, serverName, toolName string, params map[string]any) (any, error)
	ResourceExists(ctx context.Context, serverName, path string) (bool, error)
	ListServers(ctx context.Context) ([]ServerInfo, error)
	ListTools(ctx context.Context, serverName string) ([]ToolInfo, error)
}

// ServerInfo describes one registered tool server
type ServerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Connected   bool   `json:"connected"`
}

// ToolInfo describes one tool exposed by a server
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Client provides a high-level interface for talking to the MCP gateway
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

var (
	_ domain.ToolInvoker     = (*Client)(nil)
	_ domain.ResourceChecker = (*Client)(nil)
)

// NewClient creates a new MCP gateway client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

type invokeToolRequest struct {
	Params map[string]any `json:"params"`
}

type invokeToolResponse struct {
	Result any `json:"result"`
}

// InvokeTool executes a named tool on a named server and returns its result
func (c *Client) InvokeTool(ctx context.Context, serverName, toolName string, params map[string]any) (any, error) {
	path := fmt.Sprintf("/v1/servers/%s/tools/%s/invoke", url.PathEscape(serverName), url.PathEscape(toolName))

	resp, err := c.doRequest(ctx, "POST", path, &invokeToolRequest{Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke tool %s.%s: %w", serverName, toolName, err)
	}

	var result invokeToolResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process invoke response for %s.%s: %w", serverName, toolName, err)
	}

	return result.Result, nil
}

type resourceExistsResponse struct {
	Exists bool `json:"exists"`
}

// ResourceExists reports whether a path-addressed resource currently exists
// on the given server
func (c *Client) ResourceExists(ctx context.Context, serverName, path string) (bool, error) {
	requestPath := fmt.Sprintf("/v1/servers/%s/resources/exists?path=%s",
		url.PathEscape(serverName), url.QueryEscape(path))

	resp, err := c.doRequest(ctx, "GET", requestPath, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check resource on %s: %w", serverName, err)
	}

	var result resourceExistsResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return false, fmt.Errorf("failed to process resource check response for %s: %w", serverName, err)
	}

	return result.Exists, nil
}

// ListServers returns the registered tool servers
func (c *Client) ListServers(ctx context.Context) ([]ServerInfo, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/servers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	var result struct {
		Servers []ServerInfo `json:"servers"`
	}
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process list servers response: %w", err)
	}

	return result.Servers, nil
}

// ListTools returns the tools a server exposes
func (c *Client) ListTools(ctx context.Context, serverName string) ([]ToolInfo, error) {
	path := fmt.Sprintf("/v1/servers/%s/tools", url.PathEscape(serverName))

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for %s: %w", serverName, err)
	}

	var result struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process list tools response for %s: %w", serverName, err)
	}

	return result.Tools, nil
}

// doRequest performs an HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyBytes []byte
	var requestBody io.Reader

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(bodyBytes)
	}

	requestURL := c.config.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
			// Reset body reader for retry
			if bodyBytes != nil {
				requestBody = bytes.NewBuffer(bodyBytes)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			log.Error().
				Int("status_code", resp.StatusCode).
				Str("request_id", resp.Header.Get("X-Request-ID")).
				Msg("gateway server error")

			resp.Body.Close()
			lastErr = &Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// handleResponse processes the HTTP response and unmarshals JSON if successful
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResponse) == nil {
			if errorResponse.Error != "" {
				message = errorResponse.Error
			} else if errorResponse.Message != "" {
				message = errorResponse.Message
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    message,
			Body:       string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
