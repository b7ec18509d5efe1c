// Command mockcodex stands in for the Codex CLI in end-to-end harness
// tests: it ignores its argv entirely and emits a fixed experimental-json
// transcript for a resumed thread.
package main

import "fmt"

func main() {
	fmt.Println(`{"type":"thread.started","thread_id":"t1"}`)
	fmt.Println(`{"type":"turn.completed","usage":{"input_tokens":10,"output_tokens":5,"cached_input_tokens":2}}`)
}
