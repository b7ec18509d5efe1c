package claude

import (
	"encoding/json"

	harness "github.com/bearlyai/agentharness"
	"github.com/bearlyai/agentharness/backend"
	"github.com/bearlyai/agentharness/internal/jsonutil"
)

// knownTopLevel is the closed set of Claude stream-json top-level tags,
// per spec §4.2.
var knownTopLevel = map[string]bool{
	"system": true, "assistant": true, "user": true, "result": true,
	"tool_progress": true, "tool_use_summary": true, "auth_status": true,
	"stream_event": true,
}

// knownSystemSubtypes is the closed set of recognized system.subtype
// values.
var knownSystemSubtypes = map[string]bool{
	"init": true, "status": true, "compact_boundary": true,
	"hook_started": true, "hook_progress": true, "hook_response": true,
	"task_notification": true, "files_persisted": true,
}

// lineParser is the stateful per-query Claude line parser. State is
// limited to the stop-reason carry-forward the teacher's
// applyStopReasonCarryForward implements: Claude's streaming result event
// always reports a null stop_reason; the real value arrives earlier on a
// message_delta stream_event and is attached to the following result.
type lineParser struct {
	lastStopReason string
}

// NewParser returns a fresh parser scoped to one query. Claude's parser
// needs no query metadata (q is unused) since its events already carry
// everything the wrapper needs.
func (b *Backend) NewParser(q *harness.Query) backend.LineParser {
	return &lineParser{}
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
	case "system":
		return p.parseSystem(raw)
	case "result":
		return p.parseResult(raw)
	case "stream_event":
		return p.parseStreamEvent(raw)
	default:
		msg := harness.RawMessage{Type: typ, Fields: raw}
		return backend.LineResult{Events: []harness.Event{harness.MessageEvent(msg)}}
	}
}

func (p *lineParser) parseSystem(raw map[string]any) backend.LineResult {
	subtype := jsonutil.GetString(raw, "subtype")
	if !knownSystemSubtypes[subtype] {
		return backend.LineResult{}
	}
	msg := harness.RawMessage{Type: "system:" + subtype, Fields: raw}
	res := backend.LineResult{Events: []harness.Event{harness.MessageEvent(msg)}}
	if subtype == "init" {
		res.SessionID = jsonutil.GetString(raw, "session_id")
		p.lastStopReason = ""
	}
	return res
}

func (p *lineParser) parseResult(raw map[string]any) backend.LineResult {
	msg := harness.RawMessage{Type: "result", Fields: raw}
	usage := extractUsage(raw)
	if usage != nil && p.lastStopReason != "" {
		usage.StopReason = p.lastStopReason
	}
	p.lastStopReason = ""
	return backend.LineResult{
		Events: []harness.Event{harness.MessageEvent(msg)},
		Usage:  usage,
	}
}

// parseStreamEvent handles message_delta stop-reason capture; the event
// itself is still forwarded unchanged as a raw message.
func (p *lineParser) parseStreamEvent(raw map[string]any) backend.LineResult {
	if delta := jsonutil.GetMap(raw, "message_delta"); delta != nil {
		if sr := jsonutil.GetString(delta, "stop_reason"); sr != "" {
			p.lastStopReason = sr
		}
	} else if event, ok := raw["event"].(map[string]any); ok {
		if sr := jsonutil.GetString(event, "stop_reason"); sr != "" {
			p.lastStopReason = sr
		}
	}
	msg := harness.RawMessage{Type: "stream_event", Fields: raw}
	return backend.LineResult{Events: []harness.Event{harness.MessageEvent(msg)}}
}

// extractUsage builds a Usage from a result event's duration/cost/usage
// fields, per spec §4.2. Returns nil only if the object has no usage
// field at all (an all-zero usage is still a meaningful result).
func extractUsage(raw map[string]any) *harness.Usage {
	u := jsonutil.GetMap(raw, "usage")
	if u == nil {
		return nil
	}
	usage := &harness.Usage{
		InputTokens:  jsonutil.GetInt(u, "input_tokens"),
		OutputTokens: jsonutil.GetInt(u, "output_tokens"),
	}
	if _, ok := u["cache_read_input_tokens"]; ok {
		n := jsonutil.GetInt(u, "cache_read_input_tokens")
		usage.CacheReadTokens = &n
	}
	if _, ok := u["cache_creation_input_tokens"]; ok {
		n := jsonutil.GetInt(u, "cache_creation_input_tokens")
		usage.CacheWriteTokens = &n
	}
	if dur := jsonutil.GetInt(raw, "duration_ms"); dur > 0 {
		usage.DurationMs = int64(dur)
	}
	if _, ok := raw["total_cost_usd"]; ok {
		c := jsonutil.GetFloat(raw, "total_cost_usd")
		usage.CostUSD = &c
	}
	return usage
}

// Finalize synthesizes the terminal complete event from the usage latched
// during streaming. Per DESIGN.md's Open Question 1 decision, this is
// invoked from the generic exit hook rather than a second pass over the
// result line.
func (b *Backend) Finalize(usage *harness.Usage) []harness.Event {
	return []harness.Event{harness.CompleteEvent(usage)}
}
