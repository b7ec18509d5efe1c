// Package harness presents a single, normalized programmatic interface for
// driving heterogeneous third-party coding-agent command-line tools.
//
// A caller builds a [Query] — prompt, working directory, permission mode,
// model, session resumption, MCP servers, in-process client tools — passes
// it together with a [backend.Adapter] to [Run], and receives a uniform [Event]
// stream: the adapter translates the query into the right argv/env shape,
// spawns the child process, parses its line-delimited JSON stdout, and
// emits harness-uniform events until the process exits.
//
// Two adapters ship today: claude (github.com/bearlyai/agentharness/claude)
// wraps the Claude Code CLI, and codex (github.com/bearlyai/agentharness/codex)
// wraps the Codex CLI. A caller may register either with a [Registry] to
// look a backend up by name; nothing is registered automatically.
//
// One Query is one child process. The package does not retain conversation
// history, does not schedule multiple queries, and does not normalize
// model-specific event payloads — raw backend events are forwarded verbatim
// inside the uniform envelope.
package harness
