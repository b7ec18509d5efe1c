// Command mockchild is a tiny stand-in child process for the streamer
// package's integration tests: it emits stdout/stderr lines and exits with
// a caller-chosen code, driven entirely by argv, so tests never need to
// fork a shell or depend on an actual backend CLI being installed.
package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}
	switch os.Args[1] {
	case "mixed":
		fmt.Println(`{"type":"a"}`)
		fmt.Println(`not json`)
		fmt.Println(`{"type":"b"}`)
		fmt.Println(`{unterminated`)
		fmt.Println(`{"type":"c"}`)
	case "stderr":
		fmt.Println(`{"type":"a"}`)
		fmt.Fprintln(os.Stderr, "warning: something")
		fmt.Fprintln(os.Stderr, "warning: something else")
		fmt.Println(`{"type":"b"}`)
	case "crash":
		fmt.Fprintln(os.Stderr, "fatal error occurred")
		os.Exit(42)
	case "tick":
		for {
			fmt.Println(`{"type":"tick"}`)
			time.Sleep(100 * time.Millisecond)
		}
	}
}
