// Package debug provides the debug session layer the capture orchestrator
// attaches to. It wraps the DAP client with a session state machine and
// client-side breakpoint bookkeeping.
package debug

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/jsonpeek/internal/dap"
)

// SessionState represents the current state of a debug session.
type SessionState int

const (
	// StateConnected is after transport is established.
	StateConnected SessionState = iota
	// StateConfiguring is after initialize but before configurationDone.
	StateConfiguring
	// StateRunning is when the debuggee is running.
	StateRunning
	// StateStopped is when the debuggee is stopped.
	StateStopped
	// StateTerminated is when the debuggee has exited.
	StateTerminated
	// StateDisconnected is when the debug adapter has disconnected.
	StateDisconnected
)

// String returns a string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session represents a debug session with a debug adapter.
type Session struct {
	id           string
	client       *dap.Client
	capabilities *dap.Capabilities
	state        SessionState
	stateMu      sync.RWMutex

	// Current thread ID (when stopped)
	currentThread int

	breakpoints *BreakpointStore

	handlers   SessionHandlers
	handlersMu sync.RWMutex

	// Adapter command (for stdio transport)
	cmd *exec.Cmd
}

// SessionHandlers contains callbacks for session events.
type SessionHandlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new SessionState)

	// OnStopped is called when the debuggee stops.
	OnStopped func(body dap.StoppedEventBody)

	// OnOutput is called when the debuggee produces output.
	OnOutput func(category, output string)

	// OnTerminated is called when the debuggee terminates.
	OnTerminated func()
}

// SessionConfig configures a debug session.
type SessionConfig struct {
	// AdapterID is the debug adapter identifier.
	AdapterID string

	// ClientID is this client's identifier.
	ClientID string

	// ClientName is this client's name.
	ClientName string

	// LinesStartAt1 indicates if line numbers start at 1.
	LinesStartAt1 bool

	// ColumnsStartAt1 indicates if column numbers start at 1.
	ColumnsStartAt1 bool

	// PathFormat is the path format ("path" or "uri").
	PathFormat string
}

// DefaultSessionConfig returns a default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AdapterID:       "generic",
		ClientID:        "jsonpeek",
		ClientName:      "jsonpeek capture",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	}
}

// NewSession creates a new debug session with the given client.
func NewSession(client *dap.Client) *Session {
	s := &Session{
		id:          uuid.NewString(),
		client:      client,
		state:       StateConnected,
		breakpoints: NewBreakpointStore(),
	}

	client.OnInitialized(s.onInitialized)
	client.OnStopped(s.onStopped)
	client.OnContinued(s.onContinued)
	client.OnExited(s.onExited)
	client.OnTerminated(s.onTerminated)
	client.OnOutput(s.onOutput)

	return s
}

// NewStdioSession creates a debug session using stdio transport with a subprocess.
func NewStdioSession(command string, args ...string) (*Session, error) {
	cmd := exec.Command(command, args...)
	transport, err := dap.NewStdioTransport(cmd)
	if err != nil {
		return nil, fmt.Errorf("create stdio transport: %w", err)
	}

	session := NewSession(dap.NewClient(transport))
	session.cmd = cmd

	return session, nil
}

// NewSocketSession creates a debug session using socket transport.
func NewSocketSession(address string) (*Session, error) {
	transport, err := dap.NewSocketTransport(address)
	if err != nil {
		return nil, fmt.Errorf("create socket transport: %w", err)
	}

	return NewSession(dap.NewClient(transport)), nil
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers SessionHandlers) {
	s.handlersMu.Lock()
	s.handlers = handlers
	s.handlersMu.Unlock()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// setState updates the session state.
func (s *Session) setState(state SessionState) {
	s.stateMu.Lock()
	old := s.state
	s.state = state
	s.stateMu.Unlock()

	s.handlersMu.RLock()
	handler := s.handlers.OnStateChanged
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(old, state)
	}
}

// Capabilities returns the debug adapter capabilities.
func (s *Session) Capabilities() *dap.Capabilities {
	return s.capabilities
}

// CurrentThread returns the thread that most recently stopped.
func (s *Session) CurrentThread() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.currentThread
}

// Breakpoints returns the session's breakpoint store.
func (s *Session) Breakpoints() *BreakpointStore {
	return s.breakpoints
}

// Initialize initializes the debug session.
func (s *Session) Initialize(ctx context.Context, config SessionConfig) error {
	args := dap.InitializeRequestArguments{
		ClientID:        config.ClientID,
		ClientName:      config.ClientName,
		AdapterID:       config.AdapterID,
		LinesStartAt1:   config.LinesStartAt1,
		ColumnsStartAt1: config.ColumnsStartAt1,
		PathFormat:      config.PathFormat,
	}

	caps, err := s.client.Initialize(ctx, args)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.capabilities = caps
	s.setState(StateConfiguring)

	return nil
}

// ConfigurationDone signals that configuration is complete.
func (s *Session) ConfigurationDone(ctx context.Context) error {
	if err := s.client.ConfigurationDone(ctx); err != nil {
		return fmt.Errorf("configurationDone: %w", err)
	}

	s.setState(StateRunning)
	return nil
}

// Launch launches the debuggee with the given arguments.
func (s *Session) Launch(ctx context.Context, launchArgs interface{}) error {
	if err := s.client.Launch(ctx, launchArgs); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	return nil
}

// Attach attaches to a running process.
func (s *Session) Attach(ctx context.Context, attachArgs interface{}) error {
	if err := s.client.Attach(ctx, attachArgs); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	return nil
}

// Disconnect disconnects from the debug adapter.
func (s *Session) Disconnect(ctx context.Context, terminate bool) error {
	args := dap.DisconnectArguments{
		TerminateDebuggee: terminate,
	}

	if err := s.client.Disconnect(ctx, args); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	s.setState(StateDisconnected)
	return nil
}

// Close closes the session and underlying client.
func (s *Session) Close() error {
	s.setState(StateDisconnected)
	return s.client.Close()
}

// SyncBreakpoints pushes the enabled breakpoints for every path in the
// store to the adapter.
func (s *Session) SyncBreakpoints(ctx context.Context) error {
	for _, path := range s.breakpoints.Paths() {
		sourceBPs := make([]dap.SourceBreakpoint, 0)
		for _, bp := range s.breakpoints.ForPath(path) {
			if !bp.Enabled {
				continue
			}
			sourceBPs = append(sourceBPs, dap.SourceBreakpoint{
				Line:      bp.Line,
				Condition: bp.Condition,
			})
		}

		args := dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: path},
			Breakpoints: sourceBPs,
		}

		result, err := s.client.SetBreakpoints(ctx, args)
		if err != nil {
			return fmt.Errorf("sync breakpoints for %s: %w", path, err)
		}

		s.breakpoints.markVerified(path, result)
	}

	return nil
}

// Continue resumes execution.
func (s *Session) Continue(ctx context.Context, threadID int) error {
	args := dap.ContinueArguments{
		ThreadID: threadID,
	}

	if _, err := s.client.Continue(ctx, args); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// StepOver performs a single step over (DAP "next") on a thread.
func (s *Session) StepOver(ctx context.Context, threadID int) error {
	args := dap.NextArguments{
		ThreadID: threadID,
	}

	if err := s.client.Next(ctx, args); err != nil {
		return err
	}

	s.setState(StateRunning)
	return nil
}

// Threads retrieves the current threads.
func (s *Session) Threads(ctx context.Context) ([]dap.Thread, error) {
	return s.client.Threads(ctx)
}

// StackTrace retrieves up to levels frames for a thread.
func (s *Session) StackTrace(ctx context.Context, threadID, levels int) ([]dap.StackFrame, error) {
	args := dap.StackTraceArguments{
		ThreadID: threadID,
		Levels:   levels,
	}

	result, err := s.client.StackTrace(ctx, args)
	if err != nil {
		return nil, err
	}

	return result.StackFrames, nil
}

// Evaluate evaluates an expression against a frame and returns the result text.
func (s *Session) Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (string, error) {
	args := dap.EvaluateArguments{
		Expression: expression,
		FrameID:    frameID,
		Context:    evalContext,
	}

	result, err := s.client.Evaluate(ctx, args)
	if err != nil {
		return "", err
	}

	return result.Result, nil
}

// Event handlers

func (s *Session) onInitialized() {
	s.setState(StateConfiguring)
}

func (s *Session) onStopped(body dap.StoppedEventBody) {
	s.stateMu.Lock()
	s.currentThread = body.ThreadID
	s.stateMu.Unlock()

	s.setState(StateStopped)

	s.handlersMu.RLock()
	handler := s.handlers.OnStopped
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body)
	}
}

func (s *Session) onContinued(body dap.ContinuedEventBody) {
	s.setState(StateRunning)
}

func (s *Session) onExited(body dap.ExitedEventBody) {
	s.setState(StateTerminated)
}

func (s *Session) onTerminated(body dap.TerminatedEventBody) {
	s.setState(StateTerminated)

	s.handlersMu.RLock()
	handler := s.handlers.OnTerminated
	s.handlersMu.RUnlock()

	if handler != nil {
		handler()
	}
}

func (s *Session) onOutput(body dap.OutputEventBody) {
	s.handlersMu.RLock()
	handler := s.handlers.OnOutput
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.Category, body.Output)
	}
}
