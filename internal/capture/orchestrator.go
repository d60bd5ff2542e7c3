package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/jsonpeek/internal/dap"
	"github.com/dshills/jsonpeek/internal/logging"
)

// Adapter is the debug-adapter surface the orchestrator consumes. The three
// request methods are the pipeline's only suspension points.
type Adapter interface {
	// StackTrace returns up to levels frames for a thread.
	StackTrace(ctx context.Context, threadID, levels int) ([]dap.StackFrame, error)

	// Threads enumerates the debuggee's threads.
	Threads(ctx context.Context) ([]dap.Thread, error)

	// Evaluate evaluates an expression against a frame and returns the
	// result text.
	Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (string, error)

	// StepOver requests a single step over on a thread.
	StepOver(ctx context.Context, threadID int) error
}

// Viewer is the downstream collaborator that displays a captured payload.
// Materialize returns the identity of the artifact it created.
type Viewer interface {
	Materialize(payload string, meta Metadata) (string, error)
}

// Dialect builds the runtime-native serialization expression for a target.
type Dialect interface {
	SerializeExpression(target string) string
}

// StopInfo records the most recent halt of the debugged program. It always
// reflects the latest stop; it is overwritten, never queued. Line and
// Column are zero-based. HasFrame distinguishes a recorded frame from none:
// adapters may legitimately assign frame id 0.
type StopInfo struct {
	SessionID string
	ThreadID  int
	Reason    string
	FrameID   int
	HasFrame  bool
	Path      string
	Line      int
	Column    int
}

// SelectionContext is a resolved capture target, derived from an explicit
// selection, a pending request, or heuristic inference. It is transient:
// recomputed on every stop and never shared across handling cycles. URI and
// ArmedAt are populated only for pending-derived selections; they survive
// the step cycle so write-back metadata stays tied to the original arm.
type SelectionContext struct {
	URI                 string
	Path                string
	Text                string
	StartLine, StartCol int
	EndLine, EndCol     int
	Kind                ExpressionKind
	NeedsStep           bool
	FromPending         bool
	ArmedAt             time.Time
}

// Options configures an Orchestrator.
type Options struct {
	// Adapter is the debug-adapter surface. Required.
	Adapter Adapter

	// Breakpoints enumerates configured breakpoints for the
	// authorization filter. Required.
	Breakpoints BreakpointLister

	// Viewer receives captured payloads. Required.
	Viewer Viewer

	// Source provides source text for inference. Required.
	Source SourceReader

	// Dialect wraps capture targets in the debugged runtime's
	// JSON-serialization call. Required.
	Dialect Dialect

	// Log receives operational messages. Defaults to a discard logger.
	Log *logging.Logger

	// Marker overrides the magic breakpoint condition.
	Marker string

	// InferWindow overrides how many preceding lines inference walks.
	InferWindow int

	// EvalContext is the DAP evaluation context. Defaults to "repl".
	EvalContext string

	// ActiveFrame, when set, supplies the frame the debug UI already has
	// selected. It is the first frame resolution strategy.
	ActiveFrame func(sessionID string) (int, bool)

	// Notify surfaces capture failures to the user. Defaults to logging.
	Notify func(err error)
}

// Orchestrator owns the capture pipeline state: the latest StopInfo, the
// single pending-request slot, the in-progress guard, and the artifact
// metadata registry. All state lives here rather than at package level so
// tests stay deterministic.
type Orchestrator struct {
	adapter     Adapter
	breakpoints BreakpointLister
	viewer      Viewer
	source      SourceReader
	dialect     Dialect
	log         *logging.Logger
	marker      string
	window      int
	evalContext string
	activeFrame func(sessionID string) (int, bool)
	notify      func(err error)

	mu   sync.Mutex
	stop *StopInfo

	pending  PendingStore
	registry *MetadataRegistry

	// inProgress enforces at most one active capture; stops arriving
	// while set are dropped rather than queued.
	inProgress atomic.Bool
}

// New creates an orchestrator. It returns an error when a required
// collaborator is missing.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Adapter == nil:
		return nil, fmt.Errorf("capture: adapter is required")
	case opts.Breakpoints == nil:
		return nil, fmt.Errorf("capture: breakpoint lister is required")
	case opts.Viewer == nil:
		return nil, fmt.Errorf("capture: viewer is required")
	case opts.Source == nil:
		return nil, fmt.Errorf("capture: source reader is required")
	case opts.Dialect == nil:
		return nil, fmt.Errorf("capture: dialect is required")
	}

	o := &Orchestrator{
		adapter:     opts.Adapter,
		breakpoints: opts.Breakpoints,
		viewer:      opts.Viewer,
		source:      opts.Source,
		dialect:     opts.Dialect,
		log:         opts.Log,
		marker:      opts.Marker,
		window:      opts.InferWindow,
		evalContext: opts.EvalContext,
		activeFrame: opts.ActiveFrame,
		notify:      opts.Notify,
		registry:    NewMetadataRegistry(),
	}

	if o.log == nil {
		o.log = logging.Discard()
	}
	if o.marker == "" {
		o.marker = MarkerCondition
	}
	if o.window <= 0 {
		o.window = DefaultInferWindow
	}
	if o.evalContext == "" {
		o.evalContext = "repl"
	}
	if o.notify == nil {
		o.notify = func(err error) {
			o.log.Errorf("capture: %v", err)
		}
	}

	return o, nil
}

// Registry returns the capture metadata registry.
func (o *Orchestrator) Registry() *MetadataRegistry {
	return o.registry
}

// Pending returns the pending request store.
func (o *Orchestrator) Pending() *PendingStore {
	return &o.pending
}

// Tune updates the marker condition and inference window at runtime, for
// example after a config reload. Empty or non-positive values keep the
// current setting.
func (o *Orchestrator) Tune(marker string, window int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if marker != "" {
		o.marker = marker
	}
	if window > 0 {
		o.window = window
	}
}

// tuning returns the current marker and window.
func (o *Orchestrator) tuning() (string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.marker, o.window
}

// LastStop returns a copy of the most recent StopInfo.
func (o *Orchestrator) LastStop() (StopInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stop == nil {
		return StopInfo{}, false
	}
	return *o.stop, true
}

// HandleStopped processes one stopped notification: it records StopInfo,
// fetches the top stack frame, and runs the stop-handling pipeline.
// Failures obtaining the stack trace are logged and otherwise ignored.
func (o *Orchestrator) HandleStopped(ctx context.Context, sessionID string, body dap.StoppedEventBody) {
	stop := StopInfo{
		SessionID: sessionID,
		ThreadID:  body.ThreadID,
		Reason:    body.Reason,
	}

	frames, err := o.adapter.StackTrace(ctx, body.ThreadID, 1)
	if err != nil {
		o.log.Errorf("stack trace for thread %d: %v", body.ThreadID, err)
		o.recordStop(stop)
		return
	}
	if len(frames) == 0 {
		o.log.Logf("no frames for thread %d, ignoring stop", body.ThreadID)
		o.recordStop(stop)
		return
	}

	top := frames[0]
	stop.FrameID = top.ID
	stop.HasFrame = true
	stop.Line = top.Line - 1
	stop.Column = top.Column - 1
	if top.Source != nil {
		stop.Path = normalizePath(top.Source.Path)
	}

	o.recordStop(stop)
	o.handleStop(ctx, stop)
}

// recordStop overwrites the StopInfo slot; the latest stop always wins.
func (o *Orchestrator) recordStop(stop StopInfo) {
	o.mu.Lock()
	o.stop = &stop
	o.mu.Unlock()
}

// handleStop runs the authorization filter, inference, and step
// coordination for one stop.
func (o *Orchestrator) handleStop(ctx context.Context, stop StopInfo) {
	if !o.inProgress.CompareAndSwap(false, true) {
		o.log.Logf("capture in progress, dropping stop at %s:%d", stop.Path, stop.Line)
		return
	}
	defer o.inProgress.Store(false)

	if stop.Path == "" {
		return
	}

	// An armed request targeting this file always wins over the filter.
	if req, ok := o.pending.Match(stop.Path); ok {
		o.coordinate(ctx, stop, selectionFromPending(req))
		return
	}

	marker, window := o.tuning()
	if !Authorized(o.breakpoints.ForPath(stop.Path), stop.Path, stop.Line, marker) {
		return
	}

	lines, err := o.source.Lines(stop.Path)
	if err != nil {
		o.notify(fmt.Errorf("%w: %v", ErrNoExpression, err))
		return
	}

	inf, ok := InferWindow(lines, stop.Line, window)
	if !ok {
		o.notify(fmt.Errorf("%w at %s:%d", ErrNoExpression, stop.Path, stop.Line+1))
		return
	}

	o.coordinate(ctx, stop, selectionFromInference(stop.Path, inf))
}

// coordinate applies the step decision table to a resolved selection.
//
//	return      -> capture now; stepping over a return would exit the frame
//	assignment  -> if a step is still needed, re-arm and step once; the
//	               next stop finds the pending request satisfied
//	other       -> only pending (explicitly armed) selections capture
func (o *Orchestrator) coordinate(ctx context.Context, stop StopInfo, sel SelectionContext) {
	if sel.NeedsStep && sel.Kind == KindAssignment {
		o.pending.Persist(PendingRequest{
			URI:       sel.URI,
			Path:      sel.Path,
			StartLine: sel.StartLine,
			StartCol:  sel.StartCol,
			EndLine:   sel.EndLine,
			EndCol:    sel.EndCol,
			Text:      sel.Text,
			Kind:      sel.Kind,
			SessionID: stop.SessionID,
			CreatedAt: sel.ArmedAt,
			NeedsStep: false,
		})

		if err := o.adapter.StepOver(ctx, stop.ThreadID); err != nil {
			o.pending.Clear()
			o.notify(fmt.Errorf("step over thread %d: %w", stop.ThreadID, err))
		}
		return
	}

	if sel.Kind == KindOther && !sel.FromPending {
		// Explicit capture commands supply their own selection.
		return
	}

	if sel.FromPending {
		o.pending.Clear()
	}
	o.capture(ctx, stop, sel)
}

// Arm records a capture intent from an explicit selection or, when the
// selection is empty, from caret-line inference. The request occupies the
// single pending slot; arming twice keeps only the second request.
func (o *Orchestrator) Arm(req ArmRequest) error {
	sel, err := o.resolveArm(req)
	if err != nil {
		return err
	}

	o.pending.Persist(PendingRequest{
		URI:       req.URI,
		Path:      sel.Path,
		StartLine: sel.StartLine,
		StartCol:  sel.StartCol,
		EndLine:   sel.EndLine,
		EndCol:    sel.EndCol,
		Text:      sel.Text,
		Kind:      sel.Kind,
		SessionID: req.SessionID,
		NeedsStep: sel.NeedsStep,
	})

	o.log.Logf("armed capture of %q at %s:%d", sel.Text, sel.Path, sel.StartLine+1)
	return nil
}

// ArmRequest describes an arm command. Positions are zero-based; Text is
// the current selection, empty when arming from the caret alone.
type ArmRequest struct {
	URI                 string
	Path                string
	StartLine, StartCol int
	EndLine, EndCol     int
	Text                string
	SessionID           string
}

// resolveArm normalizes an arm request into a selection context. Explicit
// selections on return or assignment lines trim to the capturable range;
// anything else is taken verbatim. Caret arming relies on inference.
func (o *Orchestrator) resolveArm(req ArmRequest) (SelectionContext, error) {
	lines, err := o.source.Lines(req.Path)
	if err != nil {
		return SelectionContext{}, fmt.Errorf("%w: %v", ErrNoExpression, err)
	}

	if req.Text != "" {
		if req.StartLine >= 0 && req.StartLine < len(lines) {
			if inf, ok := InferLine(lines[req.StartLine], req.StartLine); ok {
				return selectionFromInference(req.Path, inf), nil
			}
		}
		return SelectionContext{
			Path:      normalizePath(req.Path),
			Text:      req.Text,
			StartLine: req.StartLine,
			StartCol:  req.StartCol,
			EndLine:   req.EndLine,
			EndCol:    req.EndCol,
			Kind:      KindOther,
		}, nil
	}

	_, window := o.tuning()
	inf, ok := InferWindow(lines, req.StartLine, window)
	if !ok {
		return SelectionContext{}, fmt.Errorf("%w at %s:%d", ErrNoExpression, req.Path, req.StartLine+1)
	}
	return selectionFromInference(req.Path, inf), nil
}

// Disarm clears the pending slot and disables automatic firing for it.
func (o *Orchestrator) Disarm() {
	o.pending.Clear()
	o.log.Logf("capture disarmed")
}

// SessionTerminated clears the per-session state: the StopInfo record and
// any pending request. Termination is the mechanism for giving up on a
// stalled capture.
func (o *Orchestrator) SessionTerminated(sessionID string) {
	o.mu.Lock()
	o.stop = nil
	o.mu.Unlock()

	o.pending.Clear()
	o.log.Logf("session %s terminated, capture state cleared", sessionID)
}

func selectionFromInference(path string, inf Inference) SelectionContext {
	return SelectionContext{
		Path:      normalizePath(path),
		Text:      inf.Text,
		StartLine: inf.Line,
		StartCol:  inf.StartCol,
		EndLine:   inf.Line,
		EndCol:    inf.EndCol,
		Kind:      inf.Kind,
		NeedsStep: inf.NeedsStep,
	}
}

func selectionFromPending(req PendingRequest) SelectionContext {
	return SelectionContext{
		URI:         req.URI,
		Path:        req.Path,
		Text:        req.Text,
		StartLine:   req.StartLine,
		StartCol:    req.StartCol,
		EndLine:     req.EndLine,
		EndCol:      req.EndCol,
		Kind:        req.Kind,
		NeedsStep:   req.NeedsStep,
		FromPending: true,
		ArmedAt:     req.CreatedAt,
	}
}
