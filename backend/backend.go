// Package backend defines the adapter seam every harness backend
// implements. Following the consumer-side interface-ownership convention
// (see the teacher's engine/cli/interfaces.go), the interface lives where
// it is consumed — here — not in the claude/codex packages that implement
// it.
package backend

import (
	"context"

	"github.com/bearlyai/agentharness"
)

// Invocation is the pure output of an Adapter's Build step: everything the
// streamer needs to spawn the child, plus the paths to remove once the
// query finishes.
type Invocation struct {
	Path    string
	Args    []string
	Env     map[string]string
	Dir     string
	Cleanup []string
}

// LineResult is the outcome of parsing one stdout line.
type LineResult struct {
	// Events are zero or more uniform events synthesized from this line.
	Events []harness.Event

	// SessionID is non-empty when this line carries the backend's
	// session/thread identifier. The wrapper emits session_started only
	// for the first non-empty value it sees.
	SessionID string

	// Usage is non-nil when this line carries a usage-bearing event; the
	// wrapper latches it for the eventual complete event.
	Usage *harness.Usage

	// Failed marks a backend-reported failure (e.g. Codex turn.failed);
	// the wrapper synthesizes an additional error{unknown} alongside the
	// raw message.
	Failed bool
}

// LineParser maps one non-empty stdout line to zero-or-more uniform
// events. A malformed or unrecognized line returns a zero-value
// LineResult with no events, never an error — the streamer's
// discard-silently policy depends on this.
//
// A LineParser is scoped to a single query/process lifetime: it is
// constructed fresh per invocation (see Adapter.NewParser) so that
// per-stream state — Claude's stop-reason carry-forward between a
// message_delta and the following result, Codex's write-once thread id —
// never leaks or races across concurrent queries sharing one Adapter.
type LineParser interface {
	ParseLine(line string) LineResult
}

// LineParserFunc adapts a plain function to a LineParser.
type LineParserFunc func(line string) LineResult

func (f LineParserFunc) ParseLine(line string) LineResult { return f(line) }

// Adapter is the small, closed variant set (Claude, Codex, …) spec.md §9
// calls for: three methods rather than an inheritance hierarchy.
type Adapter interface {
	// Name is the registry key ("claude", "codex", ...).
	Name() string

	// Build is the argv/env/cwd/cleanup-list builder. It spawns nothing;
	// it may write temporary files (the Claude adapter writes its MCP
	// config file here), which it lists in Invocation.Cleanup. The
	// adapters in this module never return an error from it.
	Build(ctx context.Context, q *harness.Query) (Invocation, error)

	// NewParser returns a fresh, stateful LineParser scoped to one query.
	// q is the same query passed to Build, made available here because a
	// parser sometimes needs to re-emit backend events enriched with
	// query metadata (e.g. Codex's thread.started re-emission, spec
	// §4.3) that the raw backend event doesn't itself carry.
	NewParser(q *harness.Query) LineParser

	// Finalize synthesizes the terminal event(s) once the child has
	// exited cleanly (exit code 0, or non-zero but usage was observed).
	// aborted and process_crashed paths are handled by the streamer/
	// wrapper directly and never reach Finalize.
	Finalize(usage *harness.Usage) []harness.Event
}
