package claude

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	harness "github.com/bearlyai/agentharness"
)

func baseQuery() *harness.Query {
	return &harness.Query{
		Prompt: harness.Prompt{Text: "hi"},
		CWD:    "/tmp",
		Mode:   harness.ModeYolo,
	}
}

func TestBuild_ReadOnlyMode(t *testing.T) {
	q := baseQuery()
	q.Mode = harness.ModeReadOnly

	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	joined := strings.Join(inv.Args, " ")

	assert.Contains(t, joined, "--permission-mode dontAsk")
	assert.NotContains(t, joined, "plan")
	assert.NotContains(t, joined, "--dangerously-skip-permissions")

	for _, tool := range []string{"Read", "Glob", "Grep", "WebSearch", "WebFetch",
		"Bash(git status *)", "Bash(git log *)", "Bash(git diff *)", "Bash(ls *)", "Bash(gh api *)"} {
		assert.Contains(t, joined, tool)
	}
	for _, tool := range []string{"Edit", "Write", "NotebookEdit"} {
		assert.Contains(t, joined, tool)
	}
}

func TestBuild_Thinking(t *testing.T) {
	tests := []struct {
		thinking harness.Thinking
		effort   string
		tokens   string
	}{
		{harness.ThinkingLow, "low", "3000"},
		{harness.ThinkingMedium, "medium", "5000"},
		{harness.ThinkingHigh, "high", "10000"},
	}
	for _, tt := range tests {
		q := baseQuery()
		q.Thinking = tt.thinking
		inv, err := New().Build(context.Background(), q)
		require.NoError(t, err)
		joined := strings.Join(inv.Args, " ")
		assert.Contains(t, joined, "--effort "+tt.effort)
		assert.Contains(t, joined, "--max-thinking-tokens "+tt.tokens)
	}
}

func TestBuild_ForceSubagentModelWithoutModel(t *testing.T) {
	q := baseQuery()
	b := New(WithForceSubagentModel(true))
	inv, err := b.Build(context.Background(), q)
	require.NoError(t, err)
	for k := range inv.Env {
		assert.NotContains(t, k, "ANTHROPIC_DEFAULT")
	}
}

func TestBuild_ForceSubagentModelWithModel(t *testing.T) {
	q := baseQuery()
	q.Model = "claude-x"
	b := New(WithForceSubagentModel(true))
	inv, err := b.Build(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "claude-x", inv.Env["ANTHROPIC_DEFAULT_OPUS_MODEL"])
	assert.Equal(t, "claude-x", inv.Env["ANTHROPIC_DEFAULT_SONNET_MODEL"])
	assert.Equal(t, "claude-x", inv.Env["ANTHROPIC_DEFAULT_HAIKU_MODEL"])
	assert.Equal(t, "claude-x", inv.Env["CLAUDE_CODE_SUBAGENT_MODEL"])
}

func TestBuild_PromptIsFinalPositional(t *testing.T) {
	q := baseQuery()
	q.Prompt = harness.Prompt{Text: "do the thing"}
	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(inv.Args), 2)
	assert.Equal(t, "-p", inv.Args[len(inv.Args)-2])
	assert.Equal(t, "do the thing", inv.Args[len(inv.Args)-1])
}

func TestBuild_TelemetryDisabledByDefault(t *testing.T) {
	q := baseQuery()
	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "1", inv.Env["DISABLE_TELEMETRY"])
	assert.Equal(t, "1", inv.Env["DISABLE_ERROR_REPORTING"])
}

func TestBuild_MCPConfigWritesCleanupFile(t *testing.T) {
	q := baseQuery()
	q.MCPServers = map[string]harness.MCPServerConfig{
		"srv": {Transport: harness.MCPTransportStdio, Command: "tool-bin"},
	}
	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, inv.Cleanup, 1)
	assert.Contains(t, inv.Args, "--mcp-config")
}

func TestBuild_CallerEnvWinsOverBackendEnv(t *testing.T) {
	q := baseQuery()
	q.Env = map[string]string{"DISABLE_TELEMETRY": "0"}
	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "0", inv.Env["DISABLE_TELEMETRY"])
}

func TestBuild_ResumeAndForkSession(t *testing.T) {
	q := baseQuery()
	q.ResumeSessionID = "sess-1"
	q.ForkSession = true
	inv, err := New().Build(context.Background(), q)
	require.NoError(t, err)
	joined := strings.Join(inv.Args, " ")
	assert.Contains(t, joined, "--resume sess-1")
	assert.Contains(t, joined, "--fork-session")
}

func TestMergeUnique(t *testing.T) {
	got := mergeUnique([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
