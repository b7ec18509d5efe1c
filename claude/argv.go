package claude

import (
	"context"
	"strconv"
	"strings"

	harness "github.com/bearlyai/agentharness"
	"github.com/bearlyai/agentharness/backend"
)

// readOnlyAllowedTools is the fixed allow-list spec §4.2 requires for
// read-only mode. "plan" permission mode is deliberately not used here —
// see DESIGN.md's Open Question 2 decision: plan injects unwanted system
// prompts.
var readOnlyAllowedTools = []string{
	"Read", "Glob", "Grep", "WebSearch", "WebFetch",
	"Bash(git status *)", "Bash(git log *)", "Bash(git diff *)",
	"Bash(ls *)", "Bash(gh api *)",
}

var readOnlyDisallowedTools = []string{"Edit", "Write", "NotebookEdit"}

var planningTools = []string{"EnterPlanMode", "ExitPlanMode", "Task(Plan)", "AskUserQuestion"}

type thinkingMapping struct {
	effort string
	tokens int
}

var thinkingMappings = map[harness.Thinking]thinkingMapping{
	harness.ThinkingLow:    {"low", 3000},
	harness.ThinkingMedium: {"medium", 5000},
	harness.ThinkingHigh:   {"high", 10000},
}

// Build is the pure argv/env/cwd/cleanup-list builder, spec §4.2. It
// never fails: an MCP projection error degrades to omitting --mcp-config
// rather than returning an error, since the Adapter contract requires
// Build to be total.
func (b *Backend) Build(ctx context.Context, q *harness.Query) (backend.Invocation, error) {
	args := []string{
		"--output-format", "stream-json",
		"--verbose",
		"--setting-sources", b.settingSources,
	}
	if b.partialMessages {
		args = append(args, "--include-partial-messages")
	}

	switch q.Mode {
	case harness.ModeYolo:
		args = append(args, "--dangerously-skip-permissions")
	case harness.ModeReadOnly:
		args = append(args, "--permission-mode", "dontAsk")
		allowed := mergeUnique(readOnlyAllowedTools, q.AllowedTools)
		args = append(args, "--allowedTools", strings.Join(allowed, ","))

		disallowed := mergeUnique(readOnlyDisallowedTools, q.DisallowedTools)
		if b.disablePlanningTools {
			disallowed = mergeUnique(disallowed, planningTools)
		}
		args = append(args, "--disallowed-tools", strings.Join(disallowed, ","))
	}
	if q.Mode != harness.ModeReadOnly {
		if len(q.AllowedTools) > 0 {
			args = append(args, "--allowedTools", strings.Join(q.AllowedTools, ","))
		}
		disallowed := q.DisallowedTools
		if b.disablePlanningTools {
			disallowed = mergeUnique(disallowed, planningTools)
		}
		if len(disallowed) > 0 {
			args = append(args, "--disallowed-tools", strings.Join(disallowed, ","))
		}
	}

	if q.Model != "" {
		args = append(args, "--model", q.Model)
	}
	if m, ok := thinkingMappings[q.Thinking]; ok {
		args = append(args, "--effort", m.effort, "--max-thinking-tokens", strconv.Itoa(m.tokens))
	}

	if q.ResumeSessionID != "" {
		args = append(args, "--resume", q.ResumeSessionID)
		if q.ForkSession {
			args = append(args, "--fork-session")
		}
	}

	for _, dir := range q.AdditionalDirectories {
		args = append(args, "--add-dir", dir)
	}

	if q.SystemPrompt != "" {
		args = append(args, "--system-prompt", q.SystemPrompt)
	}
	if q.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", q.AppendSystemPrompt)
	}

	env := map[string]string{}
	if b.telemetryDisabled {
		env["DISABLE_TELEMETRY"] = "1"
		env["DISABLE_ERROR_REPORTING"] = "1"
	}
	if b.forceSubagentModel && q.Model != "" {
		env["ANTHROPIC_DEFAULT_OPUS_MODEL"] = q.Model
		env["ANTHROPIC_DEFAULT_SONNET_MODEL"] = q.Model
		env["ANTHROPIC_DEFAULT_HAIKU_MODEL"] = q.Model
		env["CLAUDE_CODE_SUBAGENT_MODEL"] = q.Model
	}

	var cleanup []string
	if len(q.MCPServers) > 0 {
		path, err := writeMCPConfig(q.MCPServers)
		if err == nil {
			args = append(args, "--mcp-config", path)
			cleanup = append(cleanup, path)
		}
	}

	for k, v := range q.Env {
		env[k] = v
	}

	// Prompt is always the final positional argument.
	args = append(args, "-p", q.Prompt.JoinText())

	return backend.Invocation{
		Path:    b.binary,
		Args:    args,
		Env:     env,
		Dir:     q.CWD,
		Cleanup: cleanup,
	}, nil
}

// mergeUnique appends extra to base, skipping any value already present
// in base, preserving base's order then extra's order.
func mergeUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range extra {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
