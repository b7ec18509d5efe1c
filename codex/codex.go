// Package codex adapts the Codex CLI to the harness [backend.Adapter]
// interface. Unlike Claude's flag-heavy invocation, Codex is positional:
// `[root-flags] exec [resume] [exec-flags] [-c kv]* [sessionId] prompt`
// (spec §4.3) — argv.go builds that shape, parse.go recognizes its
// thread/turn/item event tags, and mcptoml.go emits the per-key `-c`
// overrides that replace Claude's JSON config file.
//
// Grounded on engine/cli/codex/codex.go and parse.go from the teacher:
// the subcommand switch (exec vs exec resume), the resume-suppresses-
// exec-flags invariant, and the effort-level mapping all carry over,
// generalized from session-option-map configuration to [harness.Query].
package codex

import "github.com/bearlyai/agentharness/backend"

const defaultBinary = "codex"

// Backend is the Codex CLI adapter.
type Backend struct {
	binary string
}

var _ backend.Adapter = (*Backend)(nil)

// Option configures a Backend at construction time.
type Option func(*Backend)

// WithBinary overrides the Codex CLI binary path. Empty values are
// ignored; the default is "codex".
func WithBinary(path string) Option {
	return func(b *Backend) {
		if path != "" {
			b.binary = path
		}
	}
}

// New creates a Codex CLI adapter.
func New(opts ...Option) *Backend {
	b := &Backend{binary: defaultBinary}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the registry key for this adapter.
func (b *Backend) Name() string { return "codex" }

// Binary returns the executable name/path to resolve for an install-status
// probe (see harness.Registry.CheckAllInstallStatus).
func (b *Backend) Binary() string { return b.binary }
