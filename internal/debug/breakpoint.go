package debug

import (
	"fmt"
	"sync"

	"github.com/dshills/jsonpeek/internal/dap"
)

// Breakpoint is a client-side breakpoint record. Line is 1-based, matching
// the DAP wire format.
type Breakpoint struct {
	ID        int    `json:"id"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Condition string `json:"condition,omitempty"`
	Enabled   bool   `json:"enabled"`
	Verified  bool   `json:"verified"`
	Message   string `json:"message,omitempty"`
}

// BreakpointStore tracks the breakpoints configured for a session. The
// capture authorization filter enumerates it to find marker breakpoints.
type BreakpointStore struct {
	mu     sync.RWMutex
	byID   map[int]*Breakpoint
	byPath map[string][]*Breakpoint
	nextID int
}

// NewBreakpointStore creates an empty store.
func NewBreakpointStore() *BreakpointStore {
	return &BreakpointStore{
		byID:   make(map[int]*Breakpoint),
		byPath: make(map[string][]*Breakpoint),
		nextID: 1,
	}
}

// Add records a breakpoint and returns it.
func (st *BreakpointStore) Add(path string, line int, condition string) *Breakpoint {
	st.mu.Lock()
	defer st.mu.Unlock()

	bp := &Breakpoint{
		ID:        st.nextID,
		Path:      path,
		Line:      line,
		Condition: condition,
		Enabled:   true,
	}
	st.nextID++

	st.byID[bp.ID] = bp
	st.byPath[path] = append(st.byPath[path], bp)

	return bp
}

// Remove deletes a breakpoint by ID.
func (st *BreakpointStore) Remove(id int) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	bp, ok := st.byID[id]
	if !ok {
		return fmt.Errorf("breakpoint %d not found", id)
	}

	delete(st.byID, id)

	bps := st.byPath[bp.Path]
	for i, candidate := range bps {
		if candidate.ID == id {
			st.byPath[bp.Path] = append(bps[:i], bps[i+1:]...)
			break
		}
	}
	if len(st.byPath[bp.Path]) == 0 {
		delete(st.byPath, bp.Path)
	}

	return nil
}

// SetEnabled enables or disables a breakpoint.
func (st *BreakpointStore) SetEnabled(id int, enabled bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	bp, ok := st.byID[id]
	if !ok {
		return fmt.Errorf("breakpoint %d not found", id)
	}

	bp.Enabled = enabled
	return nil
}

// ForPath returns copies of the breakpoints recorded for a file path.
func (st *BreakpointStore) ForPath(path string) []Breakpoint {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]Breakpoint, 0, len(st.byPath[path]))
	for _, bp := range st.byPath[path] {
		result = append(result, *bp)
	}
	return result
}

// All returns copies of every recorded breakpoint.
func (st *BreakpointStore) All() []Breakpoint {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]Breakpoint, 0, len(st.byID))
	for _, bp := range st.byID {
		result = append(result, *bp)
	}
	return result
}

// Paths returns all file paths with recorded breakpoints.
func (st *BreakpointStore) Paths() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	paths := make([]string, 0, len(st.byPath))
	for path := range st.byPath {
		paths = append(paths, path)
	}
	return paths
}

// markVerified updates verification state from an adapter response. The
// response order matches the order the enabled breakpoints were sent in.
func (st *BreakpointStore) markVerified(path string, result []dap.Breakpoint) {
	st.mu.Lock()
	defer st.mu.Unlock()

	i := 0
	for _, bp := range st.byPath[path] {
		if !bp.Enabled {
			continue
		}
		if i >= len(result) {
			break
		}
		bp.Verified = result[i].Verified
		bp.Message = result[i].Message
		i++
	}
}
