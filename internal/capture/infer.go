package capture

import (
	"strings"
	"unicode"
)

// ExpressionKind classifies the capturable expression found on a line.
type ExpressionKind int

const (
	// KindOther is anything inference cannot classify; only explicit
	// selections produce captures for such lines.
	KindOther ExpressionKind = iota
	// KindReturn is the sub-expression of a return statement.
	KindReturn
	// KindAssignment is the target of a simple assignment.
	KindAssignment
)

// String returns the kind name.
func (k ExpressionKind) String() string {
	switch k {
	case KindReturn:
		return "return"
	case KindAssignment:
		return "assignment"
	default:
		return "other"
	}
}

// DefaultInferWindow is how many lines above the halt line inference will
// walk looking for a return or assignment pattern. Halts often land one
// line past a multi-line statement.
const DefaultInferWindow = 3

// Inference is the result of inferring a capture target from source text.
// Line is zero-based; StartCol/EndCol are byte offsets into that line.
type Inference struct {
	Kind      ExpressionKind
	Text      string
	Line      int
	StartCol  int
	EndCol    int
	NeedsStep bool
}

// InferLine determines the capturable expression on a single source line.
// The second return is false when the line holds neither a return statement
// nor a simple assignment.
//
// Return statements capture the returned sub-expression and never require a
// step: the value is already live at the halt. Assignments capture the
// assignment target and require one step, because at the paused line the
// target does not yet hold the computed value.
func InferLine(line string, lineIndex int) (Inference, bool) {
	if inf, ok := inferReturn(line, lineIndex); ok {
		return inf, true
	}
	return inferAssignment(line, lineIndex)
}

// InferWindow walks upward from the halt line through at most window
// preceding lines, returning the nearest return or assignment match.
// haltLine is zero-based.
func InferWindow(lines []string, haltLine, window int) (Inference, bool) {
	if window < 0 {
		window = 0
	}
	for offset := 0; offset <= window; offset++ {
		idx := haltLine - offset
		if idx < 0 || idx >= len(lines) {
			continue
		}
		if inf, ok := InferLine(lines[idx], idx); ok {
			return inf, true
		}
	}
	return Inference{}, false
}

func inferReturn(line string, lineIndex int) (Inference, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "return") {
		return Inference{}, false
	}

	remainder := trimmed[len("return"):]
	if remainder != "" && isIdentRune(rune(remainder[0])) {
		// "returnValue = ..." and friends are not return statements.
		return Inference{}, false
	}

	expr := strings.TrimSpace(remainder)
	expr = strings.TrimSuffix(expr, ";")
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Inference{}, false
	}

	start := strings.Index(line, expr)
	return Inference{
		Kind:      KindReturn,
		Text:      expr,
		Line:      lineIndex,
		StartCol:  start,
		EndCol:    start + len(expr),
		NeedsStep: false,
	}, true
}

// inferAssignment finds a simple `=` (not ==, <=, >=, !=, =>) and captures
// the right-most whitespace-delimited token on its left-hand side.
func inferAssignment(line string, lineIndex int) (Inference, bool) {
	idx := simpleAssignIndex(line)
	if idx < 0 {
		return Inference{}, false
	}

	lhs := line[:idx]
	fields := strings.Fields(lhs)
	if len(fields) == 0 {
		return Inference{}, false
	}

	target := fields[len(fields)-1]
	start := strings.LastIndex(lhs, target)
	return Inference{
		Kind:      KindAssignment,
		Text:      target,
		Line:      lineIndex,
		StartCol:  start,
		EndCol:    start + len(target),
		NeedsStep: true,
	}, true
}

// simpleAssignIndex returns the index of the first simple assignment
// operator on the line, or -1.
func simpleAssignIndex(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			continue
		}
		if i > 0 && isComparisonRune(line[i-1]) {
			continue
		}
		if i+1 < len(line) && (line[i+1] == '=' || line[i+1] == '>') {
			// Skip past == so its second = is not picked up.
			i++
			continue
		}
		return i
	}
	return -1
}

func isComparisonRune(b byte) bool {
	return b == '=' || b == '<' || b == '>' || b == '!'
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
