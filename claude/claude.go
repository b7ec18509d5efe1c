// Package claude adapts the Claude Code CLI to the harness [backend.Adapter]
// interface: a pure argv/env builder (this file and argv.go), a line
// parser for its stream-json event shape (parse.go), an MCP JSON config
// writer (mcpconfig.go). The wrapper that ties them to the streamer is
// harness.Run (runner.go in the root package).
//
// Grounded on engine/cli/claude/claude.go and parse.go from the teacher,
// generalized from session-option-map configuration to this module's
// [harness.Query] and extended per spec §4.2/§4.5.
package claude

import "github.com/bearlyai/agentharness/backend"

const defaultBinary = "claude"

// Backend is the Claude Code CLI adapter. The zero-value through New
// matches the teacher's documented defaults; construction-time knobs the
// query itself has no field for (setting-sources, planning-tool
// suppression, telemetry, subagent-model forcing) follow the teacher's
// functional-options convention.
type Backend struct {
	binary               string
	settingSources       string
	disablePlanningTools bool
	telemetryDisabled    bool
	forceSubagentModel   bool
	partialMessages      bool
}

var _ backend.Adapter = (*Backend)(nil)

// Option configures a Backend at construction time.
type Option func(*Backend)

// WithBinary overrides the Claude CLI binary path. Empty values are
// ignored; the default is "claude".
func WithBinary(path string) Option {
	return func(b *Backend) {
		if path != "" {
			b.binary = path
		}
	}
}

// WithSettingSources overrides the --setting-sources csv. The default is
// "user,project,local".
func WithSettingSources(csv string) Option {
	return func(b *Backend) {
		if csv != "" {
			b.settingSources = csv
		}
	}
}

// WithDisablePlanningTools appends EnterPlanMode, ExitPlanMode,
// Task(Plan), AskUserQuestion to the disallowed-tools csv. Combinable
// with read-only mode.
func WithDisablePlanningTools(disabled bool) Option {
	return func(b *Backend) { b.disablePlanningTools = disabled }
}

// WithTelemetryDisabled controls whether DISABLE_TELEMETRY and
// DISABLE_ERROR_REPORTING are set in the child's environment. Default
// true.
func WithTelemetryDisabled(disabled bool) Option {
	return func(b *Backend) { b.telemetryDisabled = disabled }
}

// WithForceSubagentModel, when enabled and the query carries a model id,
// sets ANTHROPIC_DEFAULT_OPUS_MODEL, ANTHROPIC_DEFAULT_SONNET_MODEL,
// ANTHROPIC_DEFAULT_HAIKU_MODEL, and CLAUDE_CODE_SUBAGENT_MODEL to that
// id in the child's environment.
func WithForceSubagentModel(enabled bool) Option {
	return func(b *Backend) { b.forceSubagentModel = enabled }
}

// WithPartialMessages controls whether --include-partial-messages is
// added, enabling Claude's token-level streaming deltas (stream_event
// lines). Default true.
func WithPartialMessages(enabled bool) Option {
	return func(b *Backend) { b.partialMessages = enabled }
}

// New creates a Claude Code CLI adapter. Telemetry is disabled by default,
// matching the teacher corpus's convention of opting out of analytics
// reporting from spawned subprocesses.
func New(opts ...Option) *Backend {
	b := &Backend{
		binary:            defaultBinary,
		settingSources:    "user,project,local",
		telemetryDisabled: true,
		partialMessages:   true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the registry key for this adapter.
func (b *Backend) Name() string { return "claude" }

// Binary returns the executable name/path to resolve for an install-status
// probe (see harness.Registry.CheckAllInstallStatus).
func (b *Backend) Binary() string { return b.binary }
