package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	harness "github.com/bearlyai/agentharness"
)

func echoTool() harness.ClientTool {
	return harness.ClientTool{
		Name:        "echo",
		Description: "echoes its input back",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			return "echo: " + in.Text, nil
		},
	}
}

func boomTool() harness.ClientTool {
	return harness.ClientTool{
		Name:        "boom",
		Description: "always fails",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", errors.New("kaboom")
		},
	}
}

func connectClient(t *testing.T, url, token string) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "testclient", Version: "1.0.0"}, nil)
	opts := &mcp.StreamableClientTransportOptions{}
	if token != "" {
		opts.HTTPClient = &http.Client{Transport: bearerRoundTripper{token: token}}
	}
	transport := mcp.NewStreamableClientTransport(url, opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err)
	return session
}

type bearerRoundTripper struct {
	token string
}

func (b bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}

func TestServer_ListToolsMatchesRegistration(t *testing.T) {
	s := New(WithAuthDisabled(true))
	url, _, err := s.Start(context.Background(), []harness.ClientTool{echoTool(), boomTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	session := connectClient(t, url, "")
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	assert.True(t, names["echo"])
	assert.True(t, names["boom"])
}

func TestServer_CallUnknownToolReturnsIsError(t *testing.T) {
	s := New(WithAuthDisabled(true))
	url, _, err := s.Start(context.Background(), []harness.ClientTool{echoTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	session := connectClient(t, url, "")
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "nope"})
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "nope")
}

func TestServer_HandlerErrorSurfacesAsIsErrorAndServerStaysUp(t *testing.T) {
	s := New(WithAuthDisabled(true))
	url, _, err := s.Start(context.Background(), []harness.ClientTool{echoTool(), boomTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	session := connectClient(t, url, "")
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "boom"})
	require.NoError(t, err)
	require.True(t, result.IsError)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "kaboom")

	// the session, and the server, must still be usable afterward.
	args, _ := json.Marshal(map[string]string{"text": "hi"})
	result2, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: args})
	require.NoError(t, err)
	assert.False(t, result2.IsError)
	text2, ok := result2.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "echo: hi", text2.Text)
}

func TestServer_AuthRequiredRejectsMissingOrWrongBearer(t *testing.T) {
	s := New()
	url, token, err := s.Start(context.Background(), []harness.ClientTool{echoTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())
	require.NotEmpty(t, token)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	wrongReq, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	wrongReq.Header.Set("Authorization", "Bearer not-"+token)
	wrongResp, err := http.DefaultClient.Do(wrongReq)
	require.NoError(t, err)
	defer wrongResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
}

func TestServer_AuthRequiredAcceptsCorrectBearer(t *testing.T) {
	s := New()
	url, token, err := s.Start(context.Background(), []harness.ClientTool{echoTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	session := connectClient(t, url, token)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = session.ListTools(ctx, nil)
	assert.NoError(t, err)
}

func TestServer_SessionGateRejectsUnknownSessionID(t *testing.T) {
	s := New(WithAuthDisabled(true))
	url, _, err := s.Start(context.Background(), []harness.ClientTool{echoTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", "does-not-exist")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MethodGateRejectsUnsupportedMethod(t *testing.T) {
	s := New(WithAuthDisabled(true))
	url, _, err := s.Start(context.Background(), []harness.ClientTool{echoTool()})
	require.NoError(t, err)
	defer s.Stop(context.Background())

	req, err := http.NewRequest(http.MethodPut, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
