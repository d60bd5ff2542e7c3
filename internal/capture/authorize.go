package capture

import (
	"strings"
	"unicode"
)

// MarkerCondition is the fixed breakpoint condition that opts a breakpoint
// into automatic capture. Ordinary breakpoints never trigger the pipeline.
const MarkerCondition = "jsonpeek"

// Breakpoint is the view of a configured breakpoint the authorization
// filter consumes. Line is zero-based.
type Breakpoint struct {
	Path      string
	Line      int
	Enabled   bool
	Condition string
}

// BreakpointLister enumerates the configured breakpoints for a source file.
type BreakpointLister interface {
	ForPath(path string) []Breakpoint
}

// Authorized reports whether a stop at path:line (zero-based) may trigger
// an automatic capture: some enabled breakpoint must match the location
// exactly and carry the marker condition (compared with all whitespace
// removed).
func Authorized(breakpoints []Breakpoint, path string, line int, marker string) bool {
	path = normalizePath(path)
	for _, bp := range breakpoints {
		if !bp.Enabled {
			continue
		}
		if normalizePath(bp.Path) != path || bp.Line != line {
			continue
		}
		if stripWhitespace(bp.Condition) == marker {
			return true
		}
	}
	return false
}

// stripWhitespace removes every whitespace rune.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
