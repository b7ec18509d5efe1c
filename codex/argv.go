package codex

import (
	"context"
	"log/slog"

	harness "github.com/bearlyai/agentharness"
	"github.com/bearlyai/agentharness/backend"
)

var thinkingEffort = map[harness.Thinking]string{
	harness.ThinkingLow:    "low",
	harness.ThinkingMedium: "medium",
	harness.ThinkingHigh:   "xhigh",
}

// Build is the pure positional argv builder, spec §4.3:
// [root-flags] exec [resume] [exec-flags] [-c kv]* [sessionId] prompt.
// It never fails — an MCP projection can only add -c overrides and env
// entries, never an error.
func (b *Backend) Build(ctx context.Context, q *harness.Query) (backend.Invocation, error) {
	var args []string

	switch q.Mode {
	case harness.ModeReadOnly:
		args = append(args, "-a", "on-request")
	case harness.ModeYolo:
		args = append(args, "--yolo")
	}

	resuming := q.ResumeSessionID != ""
	args = append(args, "exec")
	if resuming {
		args = append(args, "resume")
	}
	args = append(args, "--json")

	env := map[string]string{}
	if !resuming {
		if q.Mode == harness.ModeReadOnly {
			args = append(args, "--sandbox", "read-only")
		}
		if q.Model != "" {
			args = append(args, "-m", q.Model)
		}
		if q.CWD != "" {
			args = append(args, "-C", q.CWD)
		}
		for _, dir := range q.AdditionalDirectories {
			args = append(args, "--add-dir", dir)
		}
		if effort, ok := thinkingEffort[q.Thinking]; ok {
			args = append(args, "-c", "model_reasoning_effort="+effort)
		}

		mcpArgs, mcpEnv := buildMCPOverrides(q.MCPServers)
		for _, kv := range mcpArgs {
			args = append(args, "-c", kv)
		}
		for k, v := range mcpEnv {
			env[k] = v
		}
	}

	if q.ForkSession {
		slog.Default().Warn("codex: ForkSession is not supported by the Codex backend; ignored")
	}
	if len(q.AllowedTools) > 0 || len(q.DisallowedTools) > 0 {
		slog.Default().Debug("codex: allowedTools/disallowedTools have no effect; Codex has no named-tool concept")
	}

	if resuming {
		args = append(args, q.ResumeSessionID)
	}

	args = append(args, buildPrompt(q))

	for k, v := range q.Env {
		env[k] = v
	}

	return backend.Invocation{
		Path: b.binary,
		Args: args,
		Env:  env,
		Dir:  q.CWD,
	}, nil
}

// buildPrompt joins the query's prompt parts and, when present, prepends
// a <system-instructions> block — Codex's workaround for having no
// native system-prompt slot (spec §4.3). systemPrompt is preferred over
// appendSystemPrompt when both are set.
func buildPrompt(q *harness.Query) string {
	sysText := q.SystemPrompt
	if sysText == "" {
		sysText = q.AppendSystemPrompt
	}
	prompt := q.Prompt.JoinText()
	if sysText == "" {
		return prompt
	}
	return "<system-instructions>\n" + sysText + "\n</system-instructions>\n\n" + prompt
}
