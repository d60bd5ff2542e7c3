package dap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu        sync.Mutex
	sendQueue []json.RawMessage
	recvChan  chan json.RawMessage
	closed    bool
	onSend    func(json.RawMessage)
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		recvChan: make(chan json.RawMessage, 10),
	}
}

func (t *mockTransport) Send(content json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return io.ErrClosedPipe
	}

	t.sendQueue = append(t.sendQueue, content)
	if t.onSend != nil {
		t.onSend(content)
	}
	return nil
}

func (t *mockTransport) Receive() (json.RawMessage, error) {
	content, ok := <-t.recvChan
	if !ok {
		return nil, io.EOF
	}
	return content, nil
}

func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.closed = true
		close(t.recvChan)
	}
	return nil
}

func (t *mockTransport) queue(content json.RawMessage) {
	t.recvChan <- content
}

// respond builds a success response for a request and queues it.
func (t *mockTransport) respond(req Request, body interface{}) {
	var bodyJSON json.RawMessage
	if body != nil {
		bodyJSON, _ = json.Marshal(body)
	}

	resp := Response{
		ProtocolMessage: ProtocolMessage{Seq: 1, Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
		Body:            bodyJSON,
	}

	content, _ := json.Marshal(resp)
	t.queue(content)
}

func TestClientThreads(t *testing.T) {
	mt := newMockTransport()
	mt.onSend = func(content json.RawMessage) {
		var req Request
		json.Unmarshal(content, &req)
		if req.Command == "threads" {
			mt.respond(req, ThreadsResponseBody{
				Threads: []Thread{{ID: 1, Name: "main"}},
			})
		}
	}

	client := NewClient(mt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	threads, err := client.Threads(ctx)
	if err != nil {
		t.Fatalf("threads: %v", err)
	}

	if len(threads) != 1 || threads[0].ID != 1 || threads[0].Name != "main" {
		t.Errorf("unexpected threads: %+v", threads)
	}
}

func TestClientEvaluate(t *testing.T) {
	mt := newMockTransport()
	mt.onSend = func(content json.RawMessage) {
		var req Request
		json.Unmarshal(content, &req)
		if req.Command != "evaluate" {
			return
		}

		var args EvaluateArguments
		json.Unmarshal(req.Arguments, &args)
		if args.Expression != "JSON.stringify(order)" {
			t.Errorf("unexpected expression: %q", args.Expression)
		}
		if args.FrameID != 42 {
			t.Errorf("unexpected frame id: %d", args.FrameID)
		}

		mt.respond(req, EvaluateResponseBody{Result: `"{\"id\":7}"`})
	}

	client := NewClient(mt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result, err := client.Evaluate(ctx, EvaluateArguments{
		Expression: "JSON.stringify(order)",
		FrameID:    42,
		Context:    "repl",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.Result != `"{\"id\":7}"` {
		t.Errorf("unexpected result: %q", result.Result)
	}
}

func TestClientRequestFailure(t *testing.T) {
	mt := newMockTransport()
	mt.onSend = func(content json.RawMessage) {
		var req Request
		json.Unmarshal(content, &req)

		resp := Response{
			ProtocolMessage: ProtocolMessage{Seq: 1, Type: "response"},
			RequestSeq:      req.Seq,
			Success:         false,
			Command:         req.Command,
			Message:         "unable to evaluate",
		}
		respContent, _ := json.Marshal(resp)
		mt.queue(respContent)
	}

	client := NewClient(mt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Evaluate(ctx, EvaluateArguments{Expression: "x"})
	if err == nil {
		t.Fatal("expected error from failed response")
	}
}

func TestClientContextCancellation(t *testing.T) {
	mt := newMockTransport()
	// No responder: the request will never complete.

	client := NewClient(mt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Threads(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClientStoppedEvent(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	defer client.Close()

	stopped := make(chan StoppedEventBody, 1)
	client.OnStopped(func(body StoppedEventBody) {
		stopped <- body
	})

	body, _ := json.Marshal(StoppedEventBody{Reason: "breakpoint", ThreadID: 3})
	evt := Event{
		ProtocolMessage: ProtocolMessage{Seq: 2, Type: "event"},
		Event:           "stopped",
		Body:            body,
	}
	content, _ := json.Marshal(evt)
	mt.queue(content)

	select {
	case got := <-stopped:
		if got.Reason != "breakpoint" || got.ThreadID != 3 {
			t.Errorf("unexpected stopped body: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for stopped event")
	}
}

func TestClientEventOrdering(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	defer client.Close()

	var mu sync.Mutex
	var reasons []string
	done := make(chan struct{})
	client.OnStopped(func(body StoppedEventBody) {
		mu.Lock()
		reasons = append(reasons, body.Reason)
		if len(reasons) == 3 {
			close(done)
		}
		mu.Unlock()
	})

	for _, reason := range []string{"breakpoint", "step", "pause"} {
		body, _ := json.Marshal(StoppedEventBody{Reason: reason})
		evt := Event{
			ProtocolMessage: ProtocolMessage{Seq: 2, Type: "event"},
			Event:           "stopped",
			Body:            body,
		}
		content, _ := json.Marshal(evt)
		mt.queue(content)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"breakpoint", "step", "pause"}
	for i, reason := range want {
		if reasons[i] != reason {
			t.Errorf("event %d: got %q, want %q", i, reasons[i], reason)
		}
	}
}

// An event handler must be able to issue requests of its own: event
// dispatch runs off the receive goroutine, which stays free to match the
// handler's responses.
func TestClientHandlerCanIssueRequests(t *testing.T) {
	mt := newMockTransport()
	mt.onSend = func(content json.RawMessage) {
		var req Request
		json.Unmarshal(content, &req)
		if req.Command == "stackTrace" {
			mt.respond(req, StackTraceResponseBody{
				StackFrames: []StackFrame{{ID: 9, Name: "main", Line: 4, Column: 1}},
			})
		}
	}

	client := NewClient(mt)
	defer client.Close()

	frameIDs := make(chan int, 1)
	client.OnStopped(func(body StoppedEventBody) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		frames, err := client.StackTrace(ctx, StackTraceArguments{ThreadID: body.ThreadID, Levels: 1})
		if err != nil {
			t.Errorf("stackTrace from stop handler: %v", err)
			frameIDs <- -1
			return
		}
		frameIDs <- frames.StackFrames[0].ID
	})

	body, _ := json.Marshal(StoppedEventBody{Reason: "breakpoint", ThreadID: 1})
	evt := Event{
		ProtocolMessage: ProtocolMessage{Seq: 2, Type: "event"},
		Event:           "stopped",
		Body:            body,
	}
	content, _ := json.Marshal(evt)
	mt.queue(content)

	select {
	case id := <-frameIDs:
		if id != 9 {
			t.Errorf("frame id = %d, want 9", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stop handler never completed: request issued from a handler starved the receive loop")
	}
}

func TestClientReceiveErrorFailsPending(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)

	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := client.Threads(ctx)
		errCh <- err
	}()

	// Give the request time to register, then fail the transport.
	time.Sleep(20 * time.Millisecond)
	mt.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error for pending request after transport failure")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pending request to fail")
	}
}
