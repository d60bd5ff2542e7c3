package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Client is an asynchronous DAP client. Requests suspend the caller until
// the matching response arrives. Events are dispatched in the order the
// adapter delivers them, on a dedicated dispatcher goroutine separate from
// the receive loop, so an event handler may itself issue requests: the
// receive loop stays free to match their responses.
type Client struct {
	transport Transport
	seq       int64
	pending   map[int]*pendingRequest
	pendingMu sync.Mutex
	handlers  eventHandlers
	handlerMu sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
	err       error
	errMu     sync.RWMutex

	// Event queue between the receive loop and the dispatcher. Unbounded
	// so the receive loop never blocks behind a slow handler.
	eventMu     sync.Mutex
	eventQueue  []json.RawMessage
	eventSignal chan struct{}
}

// pendingRequest tracks a request awaiting its response.
type pendingRequest struct {
	done      chan struct{}
	closeOnce sync.Once
	response  *Response
	err       error
}

func (p *pendingRequest) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// eventHandlers stores the registered event callbacks.
type eventHandlers struct {
	onInitialized func()
	onStopped     func(StoppedEventBody)
	onContinued   func(ContinuedEventBody)
	onExited      func(ExitedEventBody)
	onTerminated  func(TerminatedEventBody)
	onOutput      func(OutputEventBody)
}

// NewClient creates a client over the given transport and starts receiving.
func NewClient(transport Transport) *Client {
	c := &Client{
		transport:   transport,
		pending:     make(map[int]*pendingRequest),
		done:        make(chan struct{}),
		eventSignal: make(chan struct{}, 1),
	}
	go c.receiveLoop()
	go c.dispatchLoop()
	return c
}

// Close shuts down the client and the underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.transport.Close()
}

// Error returns any error that terminated the receive loop.
func (c *Client) Error() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

func (c *Client) receiveLoop() {
	for {
		content, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()

			// Fail all in-flight requests.
			c.pendingMu.Lock()
			for _, req := range c.pending {
				req.err = err
				req.close()
			}
			c.pending = make(map[int]*pendingRequest)
			c.pendingMu.Unlock()
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		c.handleMessage(content)
	}
}

func (c *Client) handleMessage(content json.RawMessage) {
	var base ProtocolMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return
	}

	switch base.Type {
	case "response":
		c.handleResponse(content)
	case "event":
		c.enqueueEvent(content)
	}
}

// enqueueEvent hands an event to the dispatcher without blocking the
// receive loop.
func (c *Client) enqueueEvent(content json.RawMessage) {
	c.eventMu.Lock()
	c.eventQueue = append(c.eventQueue, content)
	c.eventMu.Unlock()

	select {
	case c.eventSignal <- struct{}{}:
	default:
	}
}

// dispatchLoop drains the event queue in order, one event at a time.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.eventSignal:
		}

		for {
			c.eventMu.Lock()
			if len(c.eventQueue) == 0 {
				c.eventMu.Unlock()
				break
			}
			content := c.eventQueue[0]
			c.eventQueue = c.eventQueue[1:]
			c.eventMu.Unlock()

			c.handleEvent(content)
		}
	}
}

func (c *Client) handleResponse(content json.RawMessage) {
	var resp Response
	if err := json.Unmarshal(content, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	req, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.pendingMu.Unlock()

	if ok {
		req.response = &resp
		req.close()
	}
}

func (c *Client) handleEvent(content json.RawMessage) {
	var evt Event
	if err := json.Unmarshal(content, &evt); err != nil {
		return
	}

	c.handlerMu.RLock()
	handlers := c.handlers
	c.handlerMu.RUnlock()

	switch evt.Event {
	case "initialized":
		if handlers.onInitialized != nil {
			handlers.onInitialized()
		}
	case "stopped":
		if handlers.onStopped != nil {
			var body StoppedEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onStopped(body)
			}
		}
	case "continued":
		if handlers.onContinued != nil {
			var body ContinuedEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onContinued(body)
			}
		}
	case "exited":
		if handlers.onExited != nil {
			var body ExitedEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onExited(body)
			}
		}
	case "terminated":
		if handlers.onTerminated != nil {
			var body TerminatedEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onTerminated(body)
			}
		}
	case "output":
		if handlers.onOutput != nil {
			var body OutputEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onOutput(body)
			}
		}
	}
}

// sendRequest sends a request and waits for the matching response.
func (c *Client) sendRequest(ctx context.Context, command string, args interface{}) (*Response, error) {
	seq := int(atomic.AddInt64(&c.seq, 1))

	var argsJSON json.RawMessage
	if args != nil {
		var err error
		argsJSON, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
	}

	req := Request{
		ProtocolMessage: ProtocolMessage{
			Seq:  seq,
			Type: "request",
		},
		Command:   command,
		Arguments: argsJSON,
	}

	content, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	pending := &pendingRequest{
		done: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[seq] = pending
	c.pendingMu.Unlock()

	if err := c.transport.Send(content); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-pending.done:
		if pending.err != nil {
			return nil, pending.err
		}
		return pending.response, nil
	}
}

// Event handler setters

// OnInitialized sets the handler for the initialized event.
func (c *Client) OnInitialized(handler func()) {
	c.handlerMu.Lock()
	c.handlers.onInitialized = handler
	c.handlerMu.Unlock()
}

// OnStopped sets the handler for the stopped event.
func (c *Client) OnStopped(handler func(StoppedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onStopped = handler
	c.handlerMu.Unlock()
}

// OnContinued sets the handler for the continued event.
func (c *Client) OnContinued(handler func(ContinuedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onContinued = handler
	c.handlerMu.Unlock()
}

// OnExited sets the handler for the exited event.
func (c *Client) OnExited(handler func(ExitedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onExited = handler
	c.handlerMu.Unlock()
}

// OnTerminated sets the handler for the terminated event.
func (c *Client) OnTerminated(handler func(TerminatedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onTerminated = handler
	c.handlerMu.Unlock()
}

// OnOutput sets the handler for the output event.
func (c *Client) OnOutput(handler func(OutputEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onOutput = handler
	c.handlerMu.Unlock()
}

// DAP request methods

// Initialize sends the initialize request.
func (c *Client) Initialize(ctx context.Context, args InitializeRequestArguments) (*Capabilities, error) {
	resp, err := c.sendRequest(ctx, "initialize", args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("initialize failed: %s", resp.Message)
	}

	var caps Capabilities
	if err := json.Unmarshal(resp.Body, &caps); err != nil {
		return nil, fmt.Errorf("unmarshal capabilities: %w", err)
	}

	return &caps, nil
}

// ConfigurationDone sends the configurationDone request.
func (c *Client) ConfigurationDone(ctx context.Context) error {
	resp, err := c.sendRequest(ctx, "configurationDone", nil)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("configurationDone failed: %s", resp.Message)
	}

	return nil
}

// Launch sends the launch request.
func (c *Client) Launch(ctx context.Context, args interface{}) error {
	resp, err := c.sendRequest(ctx, "launch", args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("launch failed: %s", resp.Message)
	}

	return nil
}

// Attach sends the attach request.
func (c *Client) Attach(ctx context.Context, args interface{}) error {
	resp, err := c.sendRequest(ctx, "attach", args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("attach failed: %s", resp.Message)
	}

	return nil
}

// Disconnect sends the disconnect request.
func (c *Client) Disconnect(ctx context.Context, args DisconnectArguments) error {
	resp, err := c.sendRequest(ctx, "disconnect", args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("disconnect failed: %s", resp.Message)
	}

	return nil
}

// SetBreakpoints sends the setBreakpoints request.
func (c *Client) SetBreakpoints(ctx context.Context, args SetBreakpointsArguments) ([]Breakpoint, error) {
	resp, err := c.sendRequest(ctx, "setBreakpoints", args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("setBreakpoints failed: %s", resp.Message)
	}

	var body SetBreakpointsResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal breakpoints: %w", err)
	}

	return body.Breakpoints, nil
}

// Continue sends the continue request.
func (c *Client) Continue(ctx context.Context, args ContinueArguments) (*ContinueResponseBody, error) {
	resp, err := c.sendRequest(ctx, "continue", args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("continue failed: %s", resp.Message)
	}

	var body ContinueResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal continue response: %w", err)
	}

	return &body, nil
}

// Next sends the next (step over) request.
func (c *Client) Next(ctx context.Context, args NextArguments) error {
	resp, err := c.sendRequest(ctx, "next", args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("next failed: %s", resp.Message)
	}

	return nil
}

// Threads sends the threads request.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	resp, err := c.sendRequest(ctx, "threads", nil)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("threads failed: %s", resp.Message)
	}

	var body ThreadsResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal threads: %w", err)
	}

	return body.Threads, nil
}

// StackTrace sends the stackTrace request.
func (c *Client) StackTrace(ctx context.Context, args StackTraceArguments) (*StackTraceResponseBody, error) {
	resp, err := c.sendRequest(ctx, "stackTrace", args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("stackTrace failed: %s", resp.Message)
	}

	var body StackTraceResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal stackTrace: %w", err)
	}

	return &body, nil
}

// Evaluate sends the evaluate request.
func (c *Client) Evaluate(ctx context.Context, args EvaluateArguments) (*EvaluateResponseBody, error) {
	resp, err := c.sendRequest(ctx, "evaluate", args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("evaluate failed: %s", resp.Message)
	}

	var body EvaluateResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal evaluate: %w", err)
	}

	return &body, nil
}
