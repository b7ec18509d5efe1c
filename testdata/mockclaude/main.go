// Command mockclaude stands in for the Claude Code CLI in end-to-end
// harness tests: it ignores its argv entirely and emits a fixed
// stream-json transcript, letting the full claude.Backend + harness.Run
// stack be exercised without the real binary installed.
package main

import "fmt"

func main() {
	fmt.Println(`{"type":"system","subtype":"init","session_id":"s1"}`)
	fmt.Println(`{"type":"assistant","message":{"content":[{"type":"text","text":"hi there"}]}}`)
	fmt.Println(`{"type":"result","is_error":false,"duration_ms":5000,"total_cost_usd":0.05,"usage":{"input_tokens":12,"output_tokens":8}}`)
}
