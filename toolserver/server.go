// Package toolserver implements the in-process tool-exposure MCP server,
// spec §4.4: a transient streamable-HTTP MCP server that advertises
// caller-provided [harness.ClientTool] definitions and routes invocations
// back to their in-process handlers.
//
// Grounded on SamSaffron-term-llm's internal/mcphttp/http_server.go (the
// ephemeral 127.0.0.1:0 listener, the auth-then-logging middleware chain,
// building tool handlers with mcp.NewServer/AddTool/NewStreamableHTTPHandler).
// That reference implementation runs the SDK in Stateless mode and returns
// plain-text 401/bad-request bodies; this adapter instead runs the SDK
// stateful (so the SDK's own transport keeps the literal "session id ->
// transport" mapping spec §3/§4.4 describe), produces JSON-RPC-shaped
// 400/401 responses and a 405 with an empty body, and tracks which
// session ids have actually been initialized so
// a non-init POST or a GET/DELETE for an unknown id can be rejected before
// reaching the SDK transport.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	harness "github.com/bearlyai/agentharness"
)

// Name is the MCP server name injected into the child's MCP map when
// client tools are present.
const Name = "__harness_client_tools"

const sessionHeader = "Mcp-Session-Id"

// Server is one transient tool-exposure server, scoped to a single query.
type Server struct {
	logger       *slog.Logger
	authDisabled bool

	mu        sync.Mutex
	listener  net.Listener
	http      *http.Server
	token     string
	sessions  map[string]bool
	toolNames map[string]bool
	running   bool
}

// knownTool reports whether name was registered in the most recent Start
// call.
func (s *Server) knownTool(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolNames[name]
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuthDisabled skips bearer-token generation and enforcement. Intended
// for tests only.
func WithAuthDisabled(disabled bool) Option {
	return func(s *Server) { s.authDisabled = disabled }
}

// New creates a Server bound to no listener yet; call Start to bind and
// serve.
func New(opts ...Option) *Server {
	s := &Server{logger: slog.Default(), sessions: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds an ephemeral 127.0.0.1 listener, registers tools, and begins
// serving. It returns the /mcp URL and the bearer token (empty if auth is
// disabled).
func (s *Server) Start(ctx context.Context, tools []harness.ClientTool) (url, token string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", "", fmt.Errorf("toolserver: already running")
	}

	if !s.authDisabled {
		tok, err := randomToken()
		if err != nil {
			return "", "", fmt.Errorf("toolserver: generate auth token: %w", err)
		}
		s.token = tok
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", "", fmt.Errorf("toolserver: listen: %w", err)
	}
	s.listener = listener

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: Name, Version: "1.0.0"}, nil)
	s.toolNames = make(map[string]bool, len(tools))
	for _, tool := range tools {
		mcpServer.AddTool(toMCPTool(tool), s.handlerFor(tool))
		s.toolNames[tool.Name] = true
	}

	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.methodGate(s.authGate(s.sessionGate(s.toolNameGate(mcpHandler)))))

	s.http = &http.Server{Handler: mux}
	s.running = true
	go func() {
		if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("toolserver: serve exited", "error", err)
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return fmt.Sprintf("http://127.0.0.1:%d/mcp", addr.Port), s.token, nil
}

// Stop closes the listener and HTTP server, best-effort. Safe to call on
// a Server that never started.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	var err error
	if s.http != nil {
		if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
			err = s.http.Close()
		}
	}
	s.sessions = make(map[string]bool)
	s.toolNames = nil
	s.token = ""
	return err
}

func toMCPTool(t harness.ClientTool) *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

// handlerFor adapts a harness.ToolHandler to an MCP tool handler, per
// spec §4.4's tools/call mapping: a handler error becomes
// {content:[{text:err}], isError:true} rather than a protocol-level
// failure, so a misbehaving tool never tears down the session.
//
// The handler shape (ctx, *mcp.CallToolRequest) -> (*mcp.CallToolResult,
// error), with arguments read from req.Params.Arguments rather than a
// generic typed third parameter, matches the pinned go-sdk v1.5.0 as used
// by SamSaffron-term-llm's internal/mcphttp/http_server.go.
func (s *Server) handlerFor(t harness.ClientTool) func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.NewString()
		s.logger.Debug("toolserver: tool call", "tool", t.Name, "call_id", callID)

		argsJSON, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("marshal arguments: %v", err)}},
				IsError: true,
			}, nil
		}

		result, err := t.Handler(ctx, argsJSON)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

func randomToken() (string, error) {
	return uuid.NewString() + uuid.NewString(), nil
}
