// Package capture implements the breakpoint-triggered capture orchestrator.
//
// The orchestrator attaches to a live debug session and watches for stops
// at breakpoints that opt in via a magic condition marker. When such a stop
// arrives it infers which in-scope expression the user wants serialized,
// issues a single step-over when that expression is not assigned a value
// yet, evaluates a runtime-native JSON-serialization expression against the
// halted frame, decodes the result, and hands it to a downstream viewer.
//
// # Pipeline
//
//	stopped event -> authorization filter -> expression inference
//	              -> step coordinator -> evaluator/dispatcher -> viewer
//
// A single pending-request slot carries a capture intent across the
// step-over/re-stop cycle; a boolean in-progress guard keeps the pipeline
// from being re-entered while a capture is in flight. Late or duplicate
// stopped events are dropped, never queued.
//
// # Components
//
//   - infer.go: pure source-line heuristics resolving the capture target
//   - authorize.go: marker-condition breakpoint filter
//   - pending.go: the single-slot pending request store
//   - orchestrator.go: stop listener, step coordinator, arming commands
//   - evaluate.go: frame resolution fallback chain and evaluation
//   - decode.go: quote/escape unwrapping of evaluate results
//   - label.go: artifact label sanitization
//   - metadata.go: capture metadata registry for later write-back
package capture
