package codex

import (
	"encoding/json"

	harness "github.com/bearlyai/agentharness"
	"github.com/bearlyai/agentharness/backend"
	"github.com/bearlyai/agentharness/internal/errfmt"
	"github.com/bearlyai/agentharness/internal/jsonutil"
)

var knownTopLevel = map[string]bool{
	"thread.started": true, "turn.started": true, "turn.completed": true,
	"turn.failed": true, "item.started": true, "item.completed": true,
	"error": true,
}

// lineParser is the stateful per-query Codex line parser. State tracks
// whether thread.started has already been reported, mirroring the
// teacher's atomic write-once threadID capture but scoped to one query
// instead of shared across a Backend's lifetime.
type lineParser struct {
	query         *harness.Query
	threadStarted bool
}

// NewParser returns a fresh parser scoped to one query, closing over the
// query's cwd/model/additional-directories for thread.started
// enrichment (spec §4.3).
func (b *Backend) NewParser(q *harness.Query) backend.LineParser {
	return &lineParser{query: q}
}

func (p *lineParser) ParseLine(line string) backend.LineResult {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return backend.LineResult{}
	}
	typ, ok := raw["type"].(string)
	if !ok || !knownTopLevel[typ] {
		return backend.LineResult{}
	}

	switch typ {
	case "thread.started":
		return p.parseThreadStarted(raw)
	case "turn.completed":
		return p.parseTurnCompleted(raw)
	case "turn.failed":
		return backend.LineResult{
			Events: []harness.Event{harness.MessageEvent(harness.RawMessage{Type: typ, Fields: raw})},
			Failed: true,
		}
	case "error":
		return backend.LineResult{
			Events: []harness.Event{harness.MessageEvent(sanitizedErrorMessage(raw))},
			Failed: true,
		}
	default:
		msg := harness.RawMessage{Type: typ, Fields: raw}
		return backend.LineResult{Events: []harness.Event{harness.MessageEvent(msg)}}
	}
}

// sanitizedErrorMessage rebuilds a Codex "error" event's Fields with its
// "code" value passed through errfmt.SanitizeTag, matching the teacher's
// defensive drop of an oversized or control-character-laden error code
// before it reaches a consumer (engine/cli/codex/parse.go's
// errfmt.SanitizeCode calls on msg.ErrorCode).
func sanitizedErrorMessage(raw map[string]any) harness.RawMessage {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = v
	}
	if code, ok := raw["code"].(string); ok {
		fields["code"] = errfmt.SanitizeTag(code)
	}
	return harness.RawMessage{Type: "error", Fields: fields}
}

// parseThreadStarted captures the thread id once and re-emits it enriched
// with query metadata, per spec §4.3.
func (p *lineParser) parseThreadStarted(raw map[string]any) backend.LineResult {
	tid := jsonutil.GetString(raw, "thread_id")

	enriched := make(map[string]any, len(raw)+4)
	for k, v := range raw {
		enriched[k] = v
	}
	enriched["session_id"] = tid
	if p.query != nil {
		enriched["cwd"] = p.query.CWD
		enriched["model"] = p.query.Model
		enriched["additional_directories"] = p.query.AdditionalDirectories
	}

	res := backend.LineResult{
		Events: []harness.Event{harness.MessageEvent(harness.RawMessage{Type: "thread.started", Fields: enriched})},
	}
	if !p.threadStarted && tid != "" {
		p.threadStarted = true
		res.SessionID = tid
	}
	return res
}

func (p *lineParser) parseTurnCompleted(raw map[string]any) backend.LineResult {
	msg := harness.RawMessage{Type: "turn.completed", Fields: raw}
	usage := extractUsage(raw)
	return backend.LineResult{
		Events: []harness.Event{harness.MessageEvent(msg)},
		Usage:  usage,
	}
}

// extractUsage builds a Usage from turn.completed.usage per spec §4.3:
// input_tokens, output_tokens, cached_input_tokens. Returns nil if the
// event carries no usage object at all.
func extractUsage(raw map[string]any) *harness.Usage {
	u := jsonutil.GetMap(raw, "usage")
	if u == nil {
		return nil
	}
	usage := &harness.Usage{
		InputTokens:  jsonutil.GetInt(u, "input_tokens"),
		OutputTokens: jsonutil.GetInt(u, "output_tokens"),
	}
	if _, ok := u["cached_input_tokens"]; ok {
		n := jsonutil.GetInt(u, "cached_input_tokens")
		usage.CacheReadTokens = &n
	}
	return usage
}

// Finalize synthesizes the terminal complete event from the usage latched
// during streaming, per DESIGN.md's Open Question 1 decision.
func (b *Backend) Finalize(usage *harness.Usage) []harness.Event {
	return []harness.Event{harness.CompleteEvent(usage)}
}
