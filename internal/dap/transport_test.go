package dap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	content := json.RawMessage(`{"test": "value"}`)

	if err := writeMessage(&buf, content); err != nil {
		t.Fatalf("write message: %v", err)
	}

	result := buf.String()
	if !strings.HasPrefix(result, "Content-Length: 17\r\n\r\n") {
		t.Errorf("unexpected header: %q", result)
	}

	if !strings.HasSuffix(result, `{"test": "value"}`) {
		t.Errorf("unexpected content: %q", result)
	}
}

func TestReadMessage(t *testing.T) {
	input := "Content-Length: 17\r\n\r\n{\"test\": \"value\"}"
	reader := bufio.NewReader(strings.NewReader(input))

	content, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(content, &parsed); err != nil {
		t.Fatalf("unmarshal content: %v", err)
	}

	if parsed["test"] != "value" {
		t.Errorf("expected 'value', got '%s'", parsed["test"])
	}
}

func TestReadMessageLowercaseHeader(t *testing.T) {
	input := "content-length: 2\r\n\r\n{}"
	reader := bufio.NewReader(strings.NewReader(input))

	content, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	if string(content) != "{}" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestReadMessageMissingContentLength(t *testing.T) {
	input := "Content-Type: application/json\r\n\r\n{}"
	reader := bufio.NewReader(strings.NewReader(input))

	if _, err := readMessage(reader); err == nil {
		t.Error("expected error for missing Content-Length")
	}
}

func TestReadMessageInvalidHeader(t *testing.T) {
	input := "not-a-header\r\n\r\n{}"
	reader := bufio.NewReader(strings.NewReader(input))

	if _, err := readMessage(reader); err == nil {
		t.Error("expected error for invalid header")
	}
}

func TestReadMessageOversized(t *testing.T) {
	input := fmt.Sprintf("Content-Length: %d\r\n\r\n", MaxContentLength+1)
	reader := bufio.NewReader(strings.NewReader(input))

	if _, err := readMessage(reader); err == nil {
		t.Error("expected error for oversized content length")
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	content := json.RawMessage(`{"seq":1,"type":"request","command":"threads"}`)

	if err := writeMessage(&buf, content); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := readMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(got) != string(content) {
		t.Errorf("round trip mismatch: %q != %q", got, content)
	}
}

func TestRawTransport(t *testing.T) {
	var buf bytes.Buffer
	rwc := &bufferCloser{Buffer: &buf}
	tr := NewRawTransport(rwc)

	if err := tr.Send(json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := tr.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	if string(got) != `{"a":1}` {
		t.Errorf("unexpected content: %q", got)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !rwc.closed {
		t.Error("expected underlying closer to be closed")
	}
}

type bufferCloser struct {
	*bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}
