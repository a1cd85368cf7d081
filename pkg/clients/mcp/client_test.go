package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_InvokeTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/servers/filesystem/tools/read_file/invoke", r.URL.Path)

		var req invokeToolRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "main.go", req.Params["path"])

		json.NewEncoder(w).Encode(invokeToolResponse{Result: "package main"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(0, time.Millisecond))

	result, err := client.InvokeTool(context.Background(), "filesystem", "read_file", map[string]any{"path": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "package main", result)
}

func TestClient_InvokeTool_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown tool"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(0, time.Millisecond))

	_, err := client.InvokeTool(context.Background(), "filesystem", "nope", nil)
	require.Error(t, err)

	var mcpErr *Error
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, http.StatusNotFound, mcpErr.StatusCode)
	assert.Equal(t, "unknown tool", mcpErr.Message)
	assert.True(t, mcpErr.IsNotFound())
}

func TestClient_ResourceExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/servers/filesystem/resources/exists", r.URL.Path)
		assert.Equal(t, "src/app.go", r.URL.Query().Get("path"))

		json.NewEncoder(w).Encode(resourceExistsResponse{Exists: true})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	exists, err := client.ResourceExists(context.Background(), "filesystem", "src/app.go")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(map[string][]ServerInfo{
			"servers": {{Name: "filesystem", Connected: true}},
		})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(2, time.Millisecond))

	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "filesystem", servers[0].Name)
	assert.Equal(t, 2, attempts)
}
