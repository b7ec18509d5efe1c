package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bearlyai/agentharness/backend"
	"github.com/bearlyai/agentharness/internal/errfmt"
	"github.com/bearlyai/agentharness/internal/streamer"
	"github.com/bearlyai/agentharness/toolserver"
)

// RunnerOption configures a single Run call.
type RunnerOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger overrides the *slog.Logger used for this run's diagnostics
// (tool-exposure server logging and teardown errors). Defaults to
// slog.Default(). No event is ever suppressed or altered because of a
// logging failure.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run orchestrates a single query against adapter, implementing spec
// §4.5's per-adapter wrapper: it assembles the effective MCP map
// (starting a tool-exposure server when the query carries client tools),
// asks the adapter to build the invocation, wraps its line parser with
// the generic session/usage latch, and streams through
// internal/streamer. The returned channel is closed after the terminal
// event. If q fails validation, Run returns the validation error and a
// nil channel.
func Run(ctx context.Context, adapter backend.Adapter, q *Query, opts ...RunnerOption) (<-chan Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cfg := &runConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	out := make(chan Event, 64)

	go func() {
		defer close(out)

		effectiveQuery := *q
		var toolSrv *toolserver.Server
		if len(q.ClientTools) > 0 {
			toolSrv = toolserver.New(toolserver.WithLogger(cfg.logger))
			url, token, err := toolSrv.Start(ctx, q.ClientTools)
			if err != nil {
				out <- ErrorEvent(ErrorProcessCrashed, fmt.Sprintf("start tool-exposure server: %v", err))
				return
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := toolSrv.Stop(stopCtx); err != nil {
					cfg.logger.Warn("harness: tool-exposure server teardown failed", "error", err)
				}
			}()

			headers := map[string]string{}
			if token != "" {
				headers["Authorization"] = "Bearer " + token
			}
			mcpServers := make(map[string]MCPServerConfig, len(q.MCPServers)+1)
			for k, v := range q.MCPServers {
				mcpServers[k] = v
			}
			mcpServers[toolserver.Name] = MCPServerConfig{
				Transport: MCPTransportHTTP,
				URL:       url,
				Headers:   headers,
			}
			effectiveQuery.MCPServers = mcpServers
		}

		inv, err := adapter.Build(ctx, &effectiveQuery)
		defer cleanupPaths(inv.Cleanup, cfg.logger)
		if err != nil {
			out <- ErrorEvent(ErrorProcessCrashed, err.Error())
			return
		}

		start := time.Now()
		var latch usageLatch

		events := streamer.Stream(ctx, streamer.Options{
			Path:       inv.Path,
			Args:       inv.Args,
			Dir:        inv.Dir,
			EnvOverlay: inv.Env,
			ParseLine:  wrapParser(adapter.NewParser(&effectiveQuery), &latch),
			ExitHook: func(code *int, stderrText string) []Event {
				return finalize(adapter, &latch, code, stderrText, time.Since(start))
			},
		})

		for ev := range events {
			out <- ev
			if ev.Terminal() {
				return
			}
		}
	}()

	return out, nil
}

// usageLatch stores the most recently observed usage-bearing event,
// per spec §4.5 point 4 ("open a slot to store the last observed usage").
type usageLatch struct {
	mu    sync.Mutex
	usage *Usage
}

func (u *usageLatch) set(usage *Usage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage = usage
}

func (u *usageLatch) get() *Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

// wrapParser adapts a backend.LineParser into a streamer.LineParser,
// implementing spec §4.5 point 5: latch the first session id as
// session_started, latch usage, and emit a companion error{unknown} when
// the adapter marks a line as a reported failure.
func wrapParser(lp backend.LineParser, latch *usageLatch) streamer.LineParser {
	var sessionSent bool
	var mu sync.Mutex

	return func(line string) []Event {
		res := lp.ParseLine(line)

		var events []Event
		mu.Lock()
		if res.SessionID != "" && !sessionSent {
			sessionSent = true
			events = append(events, SessionStartedEvent(res.SessionID))
		}
		mu.Unlock()

		if res.Usage != nil {
			latch.set(res.Usage)
		}
		if res.Failed {
			events = append(events, ErrorEvent(ErrorUnknown, "backend reported failure"))
		}
		events = append(events, res.Events...)
		return events
	}
}

// finalize implements spec §4.5 point 6: complete if the child exited
// cleanly or usage was observed at any point, otherwise process_crashed.
func finalize(adapter backend.Adapter, latch *usageLatch, code *int, stderrText string, elapsed time.Duration) []Event {
	usage := latch.get()
	cleanExit := code != nil && *code == 0
	if cleanExit || usage != nil {
		if usage == nil {
			usage = &Usage{}
		}
		usage.DurationMs = elapsed.Milliseconds()
		return adapter.Finalize(usage)
	}
	msg := stderrText
	if msg == "" {
		if code != nil {
			msg = fmt.Sprintf("exit code %d", *code)
		} else {
			msg = "process exited without a status code"
		}
	}
	return []Event{ErrorEvent(ErrorProcessCrashed, errfmt.Truncate(msg))}
}

// cleanupPaths removes every path in cleanup, swallowing all errors per
// spec §4.5 point 7's guaranteed-release/best-effort teardown.
func cleanupPaths(paths []string, logger *slog.Logger) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			logger.Debug("harness: cleanup failed", "path", p, "error", err)
		}
	}
}
