// Package dialect maps a debugged runtime to the expression syntax used to
// serialize a value as JSON inside that runtime.
package dialect

import (
	"fmt"
	"strings"
)

// Runtime identifies a debugged runtime.
type Runtime string

const (
	// RuntimeNodeJS is JavaScript/TypeScript under a Node.js debugger.
	RuntimeNodeJS Runtime = "nodejs"
	// RuntimePython is Python under debugpy.
	RuntimePython Runtime = "python"
	// RuntimeDotNet is C#/.NET under netcoredbg or vsdbg.
	RuntimeDotNet Runtime = "dotnet"
	// RuntimeGo is Go under delve, which renders values natively.
	RuntimeGo Runtime = "go"
	// RuntimeGeneric passes expressions through unchanged.
	RuntimeGeneric Runtime = "generic"
)

// Dialect builds evaluate-request expressions for one runtime.
type Dialect struct {
	runtime Runtime

	// serialize wraps a target expression in the runtime's JSON call.
	serialize func(target string) string
}

// Runtime returns the runtime this dialect serves.
func (d Dialect) Runtime() Runtime {
	return d.runtime
}

// SerializeExpression wraps target in the runtime's JSON-serialization call.
func (d Dialect) SerializeExpression(target string) string {
	return d.serialize(target)
}

var dialects = map[Runtime]Dialect{
	RuntimeNodeJS: {
		runtime: RuntimeNodeJS,
		serialize: func(target string) string {
			return fmt.Sprintf("JSON.stringify(%s)", target)
		},
	},
	RuntimePython: {
		runtime: RuntimePython,
		serialize: func(target string) string {
			return fmt.Sprintf("__import__('json').dumps(%s, default=str)", target)
		},
	},
	RuntimeDotNet: {
		runtime: RuntimeDotNet,
		serialize: func(target string) string {
			return fmt.Sprintf("Newtonsoft.Json.JsonConvert.SerializeObject(%s)", target)
		},
	},
	// Delve has no in-process serializer to call; evaluate the target
	// directly and let the adapter render it.
	RuntimeGo: {
		runtime:   RuntimeGo,
		serialize: func(target string) string { return target },
	},
	RuntimeGeneric: {
		runtime:   RuntimeGeneric,
		serialize: func(target string) string { return target },
	},
}

// ForRuntime returns the dialect for a runtime, falling back to generic.
func ForRuntime(runtime Runtime) Dialect {
	if d, ok := dialects[runtime]; ok {
		return d
	}
	return dialects[RuntimeGeneric]
}

// Detect guesses the runtime from a source file name.
func Detect(filename string) Runtime {
	switch {
	case hasExtension(filename, ".js", ".ts", ".mjs", ".cjs", ".jsx", ".tsx"):
		return RuntimeNodeJS
	case hasExtension(filename, ".py"):
		return RuntimePython
	case hasExtension(filename, ".cs"):
		return RuntimeDotNet
	case hasExtension(filename, ".go"):
		return RuntimeGo
	default:
		return RuntimeGeneric
	}
}

func hasExtension(filename string, extensions ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range extensions {
		if len(lower) > len(ext) && strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
