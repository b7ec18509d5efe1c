package codex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	harness "github.com/bearlyai/agentharness"
)

func TestParseLine_UnknownTopLevelTag(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	res := p.ParseLine(`{"type":"nonsense"}`)
	assert.Empty(t, res.Events)
}

func TestParseLine_MalformedInput(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	for _, line := range []string{`not json`, `"a string"`, `{}`, `7`} {
		res := p.ParseLine(line)
		assert.Empty(t, res.Events)
	}
}

func TestParseLine_ThreadStartedEnrichedAndWriteOnce(t *testing.T) {
	q := &harness.Query{CWD: "/tmp", Model: "o3", AdditionalDirectories: []string{"/x"}}
	p := (&Backend{}).NewParser(q)

	res1 := p.ParseLine(`{"type":"thread.started","thread_id":"t1"}`)
	require.Len(t, res1.Events, 1)
	assert.Equal(t, "t1", res1.SessionID)
	assert.Equal(t, "/tmp", res1.Events[0].Message.Fields["cwd"])
	assert.Equal(t, "o3", res1.Events[0].Message.Fields["model"])

	res2 := p.ParseLine(`{"type":"thread.started","thread_id":"t1"}`)
	assert.Empty(t, res2.SessionID, "session id should only be reported once")
}

func TestParseLine_TurnCompletedUsage(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	res := p.ParseLine(`{"type":"turn.completed","usage":{"input_tokens":10,"output_tokens":5,"cached_input_tokens":2}}`)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 10, res.Usage.InputTokens)
	assert.Equal(t, 5, res.Usage.OutputTokens)
	require.NotNil(t, res.Usage.CacheReadTokens)
	assert.Equal(t, 2, *res.Usage.CacheReadTokens)
}

func TestParseLine_TurnFailedMarksFailure(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	res := p.ParseLine(`{"type":"turn.failed","message":"boom"}`)
	assert.True(t, res.Failed)
	require.Len(t, res.Events, 1)
}

func TestParseLine_ErrorEventSanitizesGarbledCode(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	res := p.ParseLine(`{"type":"error","code":"rate\u0001limit","message":"slow down"}`)
	assert.True(t, res.Failed)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "", res.Events[0].Message.Fields["code"], "control characters should be rejected")
	assert.Equal(t, "slow down", res.Events[0].Message.Fields["message"])
}

func TestParseLine_ErrorEventKeepsCleanCode(t *testing.T) {
	p := (&Backend{}).NewParser(&harness.Query{})
	res := p.ParseLine(`{"type":"error","code":"rate_limit"}`)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "rate_limit", res.Events[0].Message.Fields["code"])
}
