package capture

import (
	"path/filepath"
	"sync"
	"time"
)

// PendingRequest is a capture armed but not yet satisfiable. At most one
// exists system-wide; it survives the step-over/re-stop cycle and is
// cleared on session termination, on successful capture, or on disarm.
type PendingRequest struct {
	// URI is the document URI the request was armed from.
	URI string

	// Path is the source file path.
	Path string

	// Selection is the resolved target range, zero-based.
	StartLine, StartCol int
	EndLine, EndCol     int

	// Text is the selection text (the expression to serialize).
	Text string

	// Kind classifies the expression the request targets.
	Kind ExpressionKind

	// SessionID is the owning session, when known.
	SessionID string

	// CreatedAt is when the request was armed.
	CreatedAt time.Time

	// NeedsStep marks a request whose target is not assigned a value yet;
	// the step coordinator issues one step-over before capturing.
	NeedsStep bool
}

// PendingStore is the single-slot pending request store. A new Persist
// always replaces prior content: there is no queueing, and arming while a
// previous request is still pending silently discards the previous one.
type PendingStore struct {
	mu  sync.Mutex
	req *PendingRequest
}

// Persist overwrites the slot with req. Last write wins.
func (s *PendingStore) Persist(req PendingRequest) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.Path = normalizePath(req.Path)

	s.mu.Lock()
	s.req = &req
	s.mu.Unlock()
}

// Clear empties the slot.
func (s *PendingStore) Clear() {
	s.mu.Lock()
	s.req = nil
	s.mu.Unlock()
}

// Get returns the current request, if any.
func (s *PendingStore) Get() (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.req == nil {
		return PendingRequest{}, false
	}
	return *s.req, true
}

// Matches reports whether the slot targets the given path.
func (s *PendingStore) Matches(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.req != nil && s.req.Path == normalizePath(path)
}

// Match returns the request when it targets the given path.
func (s *PendingStore) Match(path string) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.req == nil || s.req.Path != normalizePath(path) {
		return PendingRequest{}, false
	}
	return *s.req, true
}

// normalizePath canonicalizes a path for slot comparison.
func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
