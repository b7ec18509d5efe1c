// Package filter provides composable channel middleware for harness event
// streams. Consumers wrap the channel returned by [harness.Run] with
// these functions to select the event granularity they need.
//
// Adapted from the teacher's filter/filter.go: the same goroutine-based
// pipe/trySend pattern, retargeted from agentrun.MessageType to
// [harness.EventKind]. The teacher's Send-aware delta filtering (IsDelta,
// tied to mid-session streaming deltas) has no equivalent here — this
// spec's Query is one-shot and carries no delta event kind — so only the
// kind-based filters survive.
package filter

import (
	"context"

	harness "github.com/bearlyai/agentharness"
)

// Filter returns a channel that only passes events of the given kinds.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
// The returned channel is closed when the goroutine exits.
func Filter(ctx context.Context, ch <-chan harness.Event, kinds ...harness.EventKind) <-chan harness.Event {
	allowed := make(map[harness.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return pipe(ctx, ch, func(ev harness.Event) bool {
		_, ok := allowed[ev.Kind]
		return ok
	})
}

// MessagesOnly returns a channel that passes only EventMessage events,
// dropping session/stderr/error/complete framing.
func MessagesOnly(ctx context.Context, ch <-chan harness.Event) <-chan harness.Event {
	return Filter(ctx, ch, harness.EventMessage)
}

// Terminal returns a channel that passes only the terminal event
// (EventComplete, or an EventError with code ErrorAborted or
// ErrorProcessCrashed), dropping everything before it.
func Terminal(ctx context.Context, ch <-chan harness.Event) <-chan harness.Event {
	return pipe(ctx, ch, func(ev harness.Event) bool {
		return ev.Terminal()
	})
}

// pipe spawns a goroutine that reads from ch, passes events matching the
// predicate to the returned channel, and closes it when ch closes or ctx
// is cancelled. Callers must either drain the returned channel or cancel
// ctx to avoid goroutine leaks.
func pipe(ctx context.Context, ch <-chan harness.Event, accept func(harness.Event) bool) <-chan harness.Event {
	out := make(chan harness.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if accept(ev) && !trySend(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out
}

// trySend sends ev on out, returning true on success. Returns false if
// ctx is cancelled before the send completes.
func trySend(ctx context.Context, out chan<- harness.Event, ev harness.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
