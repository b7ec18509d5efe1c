package harness

// EventKind tags the variant carried by an [Event].
type EventKind string

const (
	// EventSessionStarted is emitted exactly once, the first time the
	// child reports its session/thread identifier.
	EventSessionStarted EventKind = "session_started"

	// EventMessage carries one raw backend event, opaque but tagged.
	EventMessage EventKind = "message"

	// EventStderr carries one trimmed, non-empty stderr line.
	EventStderr EventKind = "stderr"

	// EventError carries a classified failure. See [ErrorCode].
	EventError EventKind = "error"

	// EventComplete is the terminal success event. At most one is ever
	// emitted, and nothing follows it.
	EventComplete EventKind = "complete"
)

// ErrorCode classifies an [EventError].
type ErrorCode string

const (
	ErrorAborted        ErrorCode = "aborted"
	ErrorProcessCrashed ErrorCode = "process_crashed"
	ErrorNotInstalled   ErrorCode = "not_installed"
	ErrorAuthFailed     ErrorCode = "auth_failed"
	ErrorRateLimited    ErrorCode = "rate_limited"
	ErrorContextOverflow ErrorCode = "context_overflow"
	ErrorTimeout        ErrorCode = "timeout"
	ErrorUnknown        ErrorCode = "unknown"
)

// Usage reports token/cost accounting latched from a usage-bearing backend
// event, surfaced on the terminal [EventComplete].
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  *int
	CacheWriteTokens *int
	CostUSD          *float64
	DurationMs       int64

	// StopReason is additive, teacher-sourced data: Claude's streaming
	// result event reports a null stop_reason; the real value arrives
	// earlier on a message_delta stream event and is carried forward
	// here by the adapter's line parser.
	StopReason string
}

// RawMessage is one backend event, carried opaquely. Type is the
// discriminant the line parser recognized (and, for Claude system
// events, "type:subtype"); Fields holds the full decoded object,
// including unknown keys, preserved verbatim for forward compatibility.
type RawMessage struct {
	Type   string
	Fields map[string]any
}

// HarnessError is the structured payload of an [EventError], and is also
// the type of error Registry.Register and Registry.Get return. Run checks
// no executable before streaming, and its query-validation errors are
// plain sentinel errors, not HarnessError.
type HarnessError struct {
	Code    ErrorCode
	Message string
}

func (e *HarnessError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return string(e.Code) + ": " + e.Message
}

// NewHarnessError constructs a [HarnessError].
func NewHarnessError(code ErrorCode, message string) *HarnessError {
	return &HarnessError{Code: code, Message: message}
}

// Event is one element of the uniform outgoing stream described in
// spec §3. Exactly one of the payload fields is populated, matching Kind:
//
//	EventSessionStarted -> SessionID
//	EventMessage         -> Message
//	EventStderr          -> Stderr
//	EventError           -> Err
//	EventComplete        -> Usage (may be nil/zero)
type Event struct {
	Kind EventKind

	SessionID string
	Message   RawMessage
	Stderr    string
	Err       *HarnessError
	Usage     *Usage
}

// SessionStartedEvent constructs an [EventSessionStarted] event.
func SessionStartedEvent(sessionID string) Event {
	return Event{Kind: EventSessionStarted, SessionID: sessionID}
}

// MessageEvent constructs an [EventMessage] event.
func MessageEvent(msg RawMessage) Event {
	return Event{Kind: EventMessage, Message: msg}
}

// StderrEvent constructs an [EventStderr] event.
func StderrEvent(line string) Event {
	return Event{Kind: EventStderr, Stderr: line}
}

// ErrorEvent constructs an [EventError] event.
func ErrorEvent(code ErrorCode, message string) Event {
	return Event{Kind: EventError, Err: NewHarnessError(code, message)}
}

// CompleteEvent constructs the terminal [EventComplete] event.
func CompleteEvent(usage *Usage) Event {
	return Event{Kind: EventComplete, Usage: usage}
}

// Terminal reports whether this event ends the stream — no event may
// follow an EventComplete or an EventError with code ErrorAborted or
// ErrorProcessCrashed.
func (e Event) Terminal() bool {
	if e.Kind == EventComplete {
		return true
	}
	if e.Kind != EventError || e.Err == nil {
		return false
	}
	return e.Err.Code == ErrorAborted || e.Err.Code == ErrorProcessCrashed
}
