package harness

import (
	"context"
	"encoding/json"
)

// Mode selects the permission posture a backend runs under.
type Mode string

const (
	// ModeReadOnly denies write-capable tools and engages sandboxing where
	// the backend supports it.
	ModeReadOnly Mode = "read-only"

	// ModeYolo grants the child all permissions without prompting.
	ModeYolo Mode = "yolo"
)

// Thinking selects a backend-opaque reasoning-effort tier.
type Thinking string

const (
	ThinkingLow    Thinking = "low"
	ThinkingMedium Thinking = "med"
	ThinkingHigh   Thinking = "high"
)

// PartKind identifies the kind of a [PromptPart].
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// PromptPart is one element of an ordered, multi-part prompt. Parts of a
// kind other than [PartText] are ignored when parts are joined into a
// single text prompt (the shape every backend argv builder needs), but are
// preserved on the Query for adapters that can encode them another way.
type PromptPart struct {
	Kind PartKind

	// Text holds the content for PartText parts.
	Text string

	// Data and MimeType hold the content for PartImage parts.
	Data     []byte
	MimeType string
}

// Prompt is either a plain string or an ordered sequence of [PromptPart].
// Exactly one of Text or Parts should be set; if both are set, Parts wins.
type Prompt struct {
	Text  string
	Parts []PromptPart
}

// JoinText concatenates the text content of a Prompt, one part per line.
// For a plain-string Prompt this is just Text. For a multi-part Prompt,
// non-text parts are skipped — this is the "other part kinds are ignored
// for text-join" rule every backend argv builder applies.
func (p Prompt) JoinText() string {
	if len(p.Parts) == 0 {
		return p.Text
	}
	var out []byte
	for _, part := range p.Parts {
		if part.Kind != PartText {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, part.Text...)
	}
	return string(out)
}

// MCPTransport identifies how a Query's MCP server is reached.
type MCPTransport string

const (
	MCPTransportStdio MCPTransport = "stdio"
	MCPTransportHTTP  MCPTransport = "http"
)

// MCPServerConfig describes one entry in Query.MCPServers. A stdio server
// is launched as a subprocess by the child CLI; an http server is dialed
// directly.
type MCPServerConfig struct {
	Transport MCPTransport

	// Stdio fields.
	Command string
	Args    []string
	Env     map[string]string
	Dir     string

	// HTTP fields.
	URL     string
	Headers map[string]string
}

// ToolHandler executes one in-process client tool invocation. It receives
// the JSON-RPC "arguments" object verbatim and returns either a result
// string or an error; the tool-exposure server maps a non-nil error to an
// MCP isError result rather than propagating it to the harness caller.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// ClientTool is an in-process tool definition exposed to the child over
// the tool-exposure MCP server (see package toolserver).
type ClientTool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Query is the normalized input to a backend adapter. Mode and CWD are
// always required; ForkSession requires ResumeSessionID.
type Query struct {
	Prompt             Prompt
	SystemPrompt       string
	AppendSystemPrompt string

	// CWD is the absolute path that becomes the child's working directory.
	CWD string

	// AdditionalDirectories are extra read/write roots beyond CWD.
	AdditionalDirectories []string

	// Env entries are merged last onto the child's environment — they win
	// over anything the adapter or the inherited environment sets.
	Env map[string]string

	Model    string
	Thinking Thinking

	ResumeSessionID string
	ForkSession     bool

	Mode Mode

	AllowedTools    []string
	DisallowedTools []string

	// MCPServers maps a non-empty server name to its stdio/http config.
	// The Codex adapter replaces hyphens in the name with underscores and
	// leaves every other character as is; other adapters use the name as
	// given.
	MCPServers map[string]MCPServerConfig

	ClientTools []ClientTool
}

// Validate checks the invariants spec.md §3 requires of every Query:
// Mode and CWD set, ForkSession implies ResumeSessionID, and every MCP
// server name is non-empty.
func (q *Query) Validate() error {
	if q.Mode == "" {
		return errMissingMode
	}
	if q.CWD == "" {
		return errMissingCWD
	}
	if q.ForkSession && q.ResumeSessionID == "" {
		return errForkWithoutResume
	}
	for name := range q.MCPServers {
		if name == "" {
			return errEmptyMCPServerName
		}
	}
	return nil
}
