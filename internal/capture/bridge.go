package capture

import (
	"context"

	"github.com/dshills/jsonpeek/internal/dap"
	"github.com/dshills/jsonpeek/internal/debug"
)

// SessionBreakpoints adapts a debug session's breakpoint store to the
// authorization filter. The store keeps DAP's 1-based lines; the filter
// works zero-based, so lines shift by one here.
type SessionBreakpoints struct {
	store *debug.BreakpointStore
}

// NewSessionBreakpoints wraps a session breakpoint store.
func NewSessionBreakpoints(store *debug.BreakpointStore) *SessionBreakpoints {
	return &SessionBreakpoints{store: store}
}

// ForPath returns the breakpoints recorded for a file, zero-based.
func (b *SessionBreakpoints) ForPath(path string) []Breakpoint {
	recorded := b.store.ForPath(path)

	result := make([]Breakpoint, 0, len(recorded))
	for _, bp := range recorded {
		result = append(result, Breakpoint{
			Path:      normalizePath(bp.Path),
			Line:      bp.Line - 1,
			Enabled:   bp.Enabled,
			Condition: bp.Condition,
		})
	}
	return result
}

// Attach wires a debug session's events into the orchestrator. Stopped
// events run the capture pipeline; termination clears capture state. The
// returned SessionHandlers can be extended by the caller before being set
// on the session.
func Attach(ctx context.Context, o *Orchestrator, sess *debug.Session) debug.SessionHandlers {
	handlers := debug.SessionHandlers{
		OnStopped: func(body dap.StoppedEventBody) {
			o.HandleStopped(ctx, sess.ID(), body)
		},
		OnTerminated: func() {
			o.SessionTerminated(sess.ID())
		},
	}
	sess.SetHandlers(handlers)
	return handlers
}
