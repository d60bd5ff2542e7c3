package capture

import "testing"

func TestUnwrapResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double quoted JSON", `"{\"id\":1,\"name\":\"Ada\"}"`, `{"id":1,"name":"Ada"}`},
		{"single quoted", `'{"id": 1}'`, `{"id": 1}`},
		{"backtick quoted", "`{\"id\": 1}`", `{"id": 1}`},
		{"already unwrapped", `{"id":1}`, `{"id":1}`},
		{"escaped backslash", `"a\\b"`, `a\b`},
		{"mismatched quotes", `"abc'`, `"abc'`},
		{"bare number", `42`, `42`},
		{"empty", ``, ``},
		{"lone quote", `"`, `"`},
		{"empty literal", `""`, ``},
		{"non-quote escapes kept", `"line1\nline2"`, `line1\nline2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapResult(tt.in); got != tt.want {
				t.Errorf("UnwrapResult(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Decoding twice must equal decoding once: unwrapped payloads pass through.
func TestUnwrapResultIdempotent(t *testing.T) {
	inputs := []string{
		`"{\"id\":1}"`,
		`{"id":1}`,
		`[1, 2, 3]`,
		`null`,
	}

	for _, in := range inputs {
		once := UnwrapResult(in)
		if twice := UnwrapResult(once); twice != once {
			t.Errorf("UnwrapResult not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
