package dialect

import "testing"

func TestSerializeExpression(t *testing.T) {
	tests := []struct {
		runtime Runtime
		target  string
		want    string
	}{
		{RuntimeNodeJS, "order", "JSON.stringify(order)"},
		{RuntimePython, "payload", "__import__('json').dumps(payload, default=str)"},
		{RuntimeDotNet, "customer.Orders", "Newtonsoft.Json.JsonConvert.SerializeObject(customer.Orders)"},
		{RuntimeGo, "resp", "resp"},
		{RuntimeGeneric, "x", "x"},
	}

	for _, tt := range tests {
		d := ForRuntime(tt.runtime)
		if got := d.SerializeExpression(tt.target); got != tt.want {
			t.Errorf("%s: SerializeExpression(%q) = %q, want %q", tt.runtime, tt.target, got, tt.want)
		}
	}
}

func TestForRuntimeUnknownFallsBack(t *testing.T) {
	d := ForRuntime(Runtime("cobol"))
	if d.Runtime() != RuntimeGeneric {
		t.Errorf("expected generic fallback, got %s", d.Runtime())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Runtime
	}{
		{"app.js", RuntimeNodeJS},
		{"component.tsx", RuntimeNodeJS},
		{"service.PY", RuntimePython},
		{"Program.cs", RuntimeDotNet},
		{"main.go", RuntimeGo},
		{"script.rb", RuntimeGeneric},
		{"", RuntimeGeneric},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.filename, got, tt.want)
		}
	}
}
