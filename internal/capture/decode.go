package capture

import "strings"

// UnwrapResult decodes the textual result of an evaluate request. Debug
// adapters quote scalar string results in the debugged runtime's own
// literal syntax; when the whole string is wrapped in one layer of matching
// quote characters the wrapping quotes are stripped and backslash-escaped
// quotes and backslashes are unescaped.
//
// The pass is idempotent: text without surrounding quotes is returned
// unchanged. This is a narrow decoder, not a string-literal parser.
func UnwrapResult(s string) string {
	if len(s) < 2 {
		return s
	}

	quote := s[0]
	if quote != '"' && quote != '\'' && quote != '`' {
		return s
	}
	if s[len(s)-1] != quote {
		return s
	}

	return unescape(s[1 : len(s)-1])
}

// unescape resolves backslash-escaped quotes and backslashes. Other escape
// sequences are preserved verbatim.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '"', '\'', '\\':
				b.WriteByte(s[i+1])
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
