// Package dap implements the Debug Adapter Protocol client used by the
// capture orchestrator.
package dap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Transport carries Content-Length framed DAP messages.
type Transport interface {
	// Send writes one message body to the debug adapter.
	Send(content json.RawMessage) error

	// Receive reads the next message body from the debug adapter.
	Receive() (json.RawMessage, error)

	// Close closes the transport.
	Close() error
}

// MaxContentLength is the maximum allowed content length for DAP messages (10MB).
const MaxContentLength = 10 * 1024 * 1024

// StdioTransport speaks DAP over stdin/stdout of an adapter subprocess.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
	stdout io.ReadCloser
	mu     sync.Mutex
}

// NewStdioTransport starts cmd and frames messages over its pipes.
func NewStdioTransport(cmd *exec.Cmd) (*StdioTransport, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start adapter: %w", err)
	}

	return &StdioTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReader(stdout),
	}, nil
}

// Send writes a message to the adapter process.
func (t *StdioTransport) Send(content json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return writeMessage(t.stdin, content)
}

// Receive reads a message from the adapter process.
func (t *StdioTransport) Receive() (json.RawMessage, error) {
	return readMessage(t.reader)
}

// Close closes the pipes and terminates the subprocess.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stdin.Close()
	t.stdout.Close()

	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}

	return t.cmd.Wait()
}

// SocketTransport speaks DAP over a TCP connection.
type SocketTransport struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewSocketTransport dials address and frames messages over the connection.
func NewSocketTransport(address string) (*SocketTransport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	return NewSocketTransportFromConn(conn), nil
}

// NewSocketTransportFromConn wraps an existing connection.
func NewSocketTransportFromConn(conn net.Conn) *SocketTransport {
	return &SocketTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Send writes a message to the connection.
func (t *SocketTransport) Send(content json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return writeMessage(t.conn, content)
}

// Receive reads a message from the connection.
func (t *SocketTransport) Receive() (json.RawMessage, error) {
	return readMessage(t.reader)
}

// Close closes the connection.
func (t *SocketTransport) Close() error {
	return t.conn.Close()
}

// RawTransport wraps any io.ReadWriteCloser as a Transport.
type RawTransport struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewRawTransport creates a transport from any ReadWriteCloser.
func NewRawTransport(rwc io.ReadWriteCloser) *RawTransport {
	return &RawTransport{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// Send writes a message.
func (t *RawTransport) Send(content json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return writeMessage(t.rwc, content)
}

// Receive reads a message.
func (t *RawTransport) Receive() (json.RawMessage, error) {
	return readMessage(t.reader)
}

// Close closes the underlying connection.
func (t *RawTransport) Close() error {
	return t.rwc.Close()
}

// writeMessage frames one message body with a Content-Length header.
func writeMessage(w io.Writer, content json.RawMessage) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(content))

	if _, err := w.Write([]byte(header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write content: %w", err)
	}

	return nil
}

// readMessage reads one framed message body.
func readMessage(r *bufio.Reader) (json.RawMessage, error) {
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // end of headers
		}

		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header: %s", line)
		}

		if strings.EqualFold(parts[0], "content-length") {
			length, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid content-length: %w", err)
			}
			if length < 0 || length > MaxContentLength {
				return nil, fmt.Errorf("content-length %d exceeds maximum allowed %d", length, MaxContentLength)
			}
			contentLength = length
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return content, nil
}
