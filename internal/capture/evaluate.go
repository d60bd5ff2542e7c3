package capture

import (
	"context"
	"fmt"
)

// capture runs the evaluation half of the pipeline: resolve a frame, wrap
// the target in the runtime's serialization call, evaluate, decode, and
// hand the payload to the viewer. Failures are surfaced through notify and
// never retried.
func (o *Orchestrator) capture(ctx context.Context, stop StopInfo, sel SelectionContext) {
	frameID, err := o.resolveFrame(ctx, stop)
	if err != nil {
		o.notify(fmt.Errorf("capture %q: %w", sel.Text, err))
		return
	}

	serialized := o.dialect.SerializeExpression(sel.Text)

	raw, err := o.adapter.Evaluate(ctx, serialized, frameID, o.evalContext)
	if err != nil {
		o.notify(fmt.Errorf("evaluate %q: %w", sel.Text, err))
		return
	}

	payload := UnwrapResult(raw)
	if payload == "" {
		o.notify(fmt.Errorf("evaluate %q: %w", sel.Text, ErrEmptyResult))
		return
	}

	meta := Metadata{
		Expression: sel.Text,
		FilePath:   sel.Path,
		Label:      SanitizeLabel(sel.Text),
		Line:       sel.StartLine,
	}

	artifactID, err := o.viewer.Materialize(payload, meta)
	if err != nil {
		o.notify(fmt.Errorf("materialize %q: %w", sel.Text, err))
		return
	}

	o.registry.Store(artifactID, meta)
	o.log.Logf("captured %q at %s:%d as %s", sel.Text, sel.Path, sel.StartLine+1, artifactID)
}

// resolveFrame finds a stack frame to evaluate against, trying in order:
// the frame the UI already has active, the frame recorded on the stop,
// a fresh one-frame stack trace on the stopped thread, and finally the
// first frame of the first reported thread.
func (o *Orchestrator) resolveFrame(ctx context.Context, stop StopInfo) (int, error) {
	if o.activeFrame != nil {
		if id, ok := o.activeFrame(stop.SessionID); ok {
			return id, nil
		}
	}

	if stop.HasFrame {
		return stop.FrameID, nil
	}

	if stop.ThreadID != 0 {
		frames, err := o.adapter.StackTrace(ctx, stop.ThreadID, 1)
		if err == nil && len(frames) > 0 {
			return frames[0].ID, nil
		}
	}

	threads, err := o.adapter.Threads(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoStackFrame, err)
	}
	if len(threads) == 0 {
		return 0, ErrNoStackFrame
	}

	frames, err := o.adapter.StackTrace(ctx, threads[0].ID, 1)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoStackFrame, err)
	}
	if len(frames) == 0 {
		return 0, ErrNoStackFrame
	}
	return frames[0].ID, nil
}

// Capture evaluates an explicit selection against the most recent stop. It
// is the entry point for user-invoked capture commands that bypass the
// breakpoint filter.
func (o *Orchestrator) Capture(ctx context.Context, sel SelectionContext) error {
	stop, ok := o.LastStop()
	if !ok {
		return ErrNoSession
	}

	if !o.inProgress.CompareAndSwap(false, true) {
		return fmt.Errorf("capture already in progress")
	}
	defer o.inProgress.Store(false)

	o.capture(ctx, stop, sel)
	return nil
}
