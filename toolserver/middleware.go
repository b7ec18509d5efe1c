package toolserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// jsonRPCError writes a JSON-RPC 2.0 error envelope with the given HTTP
// status, matching spec §4.4's exact wording for the 400/401 bodies.
func jsonRPCError(w http.ResponseWriter, status int, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// methodGate rejects anything but GET/POST/DELETE on /mcp with 405, per
// spec §4.4's dispatch table.
func (s *Server) methodGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodPost, http.MethodDelete:
			next.ServeHTTP(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// authGate enforces the bearer token, when enabled, before any request
// reaches session/transport dispatch.
func (s *Server) authGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authDisabled {
			next.ServeHTTP(w, r)
			return
		}
		want := "Bearer " + s.token
		if r.Header.Get("Authorization") != want {
			jsonRPCError(w, http.StatusUnauthorized, -32000, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionGate implements spec §4.4's branching: a POST without a session
// id must be an initialize request; GET/DELETE and every other POST must
// carry a session id this server has actually seen initialized. The SDK's
// own streamable-HTTP transport (running stateful) is the system of
// record for dispatch once a request passes this gate; this layer only
// decides admit-or-400, then records newly initialized session ids by
// inspecting the response header the transport sets on success.
func (s *Server) sessionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get(sessionHeader)

		if sid == "" {
			if r.Method != http.MethodPost || !isInitializeRequest(r) {
				jsonRPCError(w, http.StatusBadRequest, -32000,
					"Bad Request: missing session ID or not an init request")
				return
			}
			rec := &sessionRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if newSID := rec.Header().Get(sessionHeader); newSID != "" {
				s.mu.Lock()
				s.sessions[newSID] = true
				s.mu.Unlock()
			}
			return
		}

		s.mu.Lock()
		known := s.sessions[sid]
		s.mu.Unlock()
		if !known {
			jsonRPCError(w, http.StatusBadRequest, -32000, "Bad Request: unknown session ID")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isInitializeRequest peeks the request body for a JSON-RPC "initialize"
// method without consuming it for the downstream handler.
func isInitializeRequest(r *http.Request) bool {
	if r.Body == nil {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Method == "initialize"
}

// peekToolCall reports whether r is a JSON-RPC tools/call request and, if
// so, the requested tool name and its request id, without consuming the
// body for the downstream handler.
func peekToolCall(r *http.Request) (toolName string, id json.RawMessage, ok bool) {
	if r.Body == nil {
		return "", nil, false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Method string          `json:"method"`
		ID     json.RawMessage `json:"id"`
		Params struct {
			Name string `json:"name"`
		} `json:"params"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", nil, false
	}
	if envelope.Method != "tools/call" {
		return "", nil, false
	}
	return envelope.Params.Name, envelope.ID, true
}

// toolNameGate rejects a tools/call for a name this server never
// registered with a JSON-RPC success envelope carrying an isError tool
// result, per spec §4.4: an unknown tool is a tool-execution failure, not
// a protocol-level error, so it must never reach the SDK's own routing
// (whose unregistered-tool behavior this adapter does not control).
func (s *Server) toolNameGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, id, ok := peekToolCall(r)
		if !ok || s.knownTool(name) {
			next.ServeHTTP(w, r)
			return
		}
		writeUnknownToolResult(w, id, name)
	})
}

// writeUnknownToolResult writes the direct (non-streaming) JSON-RPC
// response the streamable-HTTP transport permits for a single request/
// response exchange.
func writeUnknownToolResult(w http.ResponseWriter, id json.RawMessage, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Unknown tool: " + name},
			},
			"isError": true,
		},
	})
}

// sessionRecorder captures the response header map set by the wrapped
// handler so sessionGate can learn the session id the SDK minted for a
// successful initialize.
type sessionRecorder struct {
	http.ResponseWriter
}
