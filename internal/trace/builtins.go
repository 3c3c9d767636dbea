package trace

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sunholo/ailang-debugger/internal/script"
)

// builtinRegistry holds the host runtime's default builtins table,
// mirroring the teacher's internal/builtins.Registry pattern (a package-
// level map populated by an init-time register function) but keyed on
// live script.Value implementations rather than metadata, since this
// registry is copied wholesale into every freshly built scope.
var builtinRegistry = make(map[string]script.Value)

func init() {
	registerCoreBuiltins()
}

// DefaultBuiltins returns a fresh copy of the host's default builtins
// table, the same "copy of the host's default builtins table" spec.md
// §4.A requires defaultScope to install.
func DefaultBuiltins() map[string]script.Value {
	out := make(map[string]script.Value, len(builtinRegistry))
	for k, v := range builtinRegistry {
		out[k] = v
	}
	return out
}

func registerCoreBuiltins() {
	builtinRegistry["print"] = &script.BuiltinFunction{Name: "print", Fn: builtinPrint}
	builtinRegistry["len"] = &script.BuiltinFunction{Name: "len", Fn: builtinLen}
	builtinRegistry["abs"] = &script.BuiltinFunction{Name: "abs", Fn: builtinAbs}
	builtinRegistry["str"] = &script.BuiltinFunction{Name: "str", Fn: builtinStr}
	builtinRegistry["int"] = &script.BuiltinFunction{Name: "int", Fn: builtinInt}
	builtinRegistry["range"] = &script.BuiltinFunction{Name: "range", Fn: builtinRange}
	// compile/exec/open are present in the default (unsandboxed) scope
	// and removed by trace.SandboxScope per spec.md §4.A.
	builtinRegistry["compile"] = &script.BuiltinFunction{Name: "compile", Fn: builtinUnsupported("compile")}
	builtinRegistry["exec"] = &script.BuiltinFunction{Name: "exec", Fn: builtinUnsupported("exec")}
	builtinRegistry["open"] = &script.BuiltinFunction{Name: "open", Fn: builtinUnsupported("open")}
}

func builtinUnsupported(name string) func(*script.Frame, []script.Value) (script.Value, error) {
	return func(frame *script.Frame, args []script.Value) (script.Value, error) {
		return nil, fmt.Errorf("%s is not implemented by the embedded runtime", name)
	}
}

func builtinPrint(frame *script.Frame, args []script.Value) (script.Value, error) {
	parts := make([]interface{}, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Println(parts...)
	return &script.NoneValue{}, nil
}

func builtinLen(frame *script.Frame, args []script.Value) (script.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument (%d given)", len(args))
	}
	switch v := args[0].(type) {
	case *script.ListValue:
		return &script.IntValue{Value: int64(len(v.Elements))}, nil
	case *script.TupleValue:
		return &script.IntValue{Value: int64(len(v.Elements))}, nil
	case *script.SetValue:
		return &script.IntValue{Value: int64(len(v.Elements))}, nil
	case *script.MapValue:
		return &script.IntValue{Value: int64(len(v.Entries))}, nil
	case *script.StringValue:
		return &script.IntValue{Value: int64(len([]rune(v.Value)))}, nil
	default:
		return nil, fmt.Errorf("object of type '%s' has no len()", args[0].Type())
	}
}

func builtinAbs(frame *script.Frame, args []script.Value) (script.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs() takes exactly one argument (%d given)", len(args))
	}
	switch v := args[0].(type) {
	case *script.IntValue:
		if v.Value < 0 {
			return &script.IntValue{Value: -v.Value}, nil
		}
		return v, nil
	case *script.FloatValue:
		return &script.FloatValue{Value: math.Abs(v.Value)}, nil
	default:
		return nil, fmt.Errorf("bad operand type for abs(): '%s'", args[0].Type())
	}
}

func builtinStr(frame *script.Frame, args []script.Value) (script.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str() takes exactly one argument (%d given)", len(args))
	}
	return &script.StringValue{Value: args[0].String()}, nil
}

func builtinInt(frame *script.Frame, args []script.Value) (script.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("int() takes exactly one argument (%d given)", len(args))
	}
	switch v := args[0].(type) {
	case *script.IntValue:
		return v, nil
	case *script.FloatValue:
		return &script.IntValue{Value: int64(v.Value)}, nil
	case *script.StringValue:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int() with base 10: %q", v.Value)
		}
		return &script.IntValue{Value: n}, nil
	default:
		return nil, fmt.Errorf("int() argument must be a string or a number, not '%s'", args[0].Type())
	}
}

func builtinRange(frame *script.Frame, args []script.Value) (script.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("range() takes 1 or 2 arguments (%d given)", len(args))
	}
	var start, stop int64
	if len(args) == 1 {
		n, ok := args[0].(*script.IntValue)
		if !ok {
			return nil, fmt.Errorf("range() argument must be an int")
		}
		stop = n.Value
	} else {
		s, ok1 := args[0].(*script.IntValue)
		e, ok2 := args[1].(*script.IntValue)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("range() arguments must be ints")
		}
		start, stop = s.Value, e.Value
	}
	elems := make([]script.Value, 0, stop-start)
	for i := start; i < stop; i++ {
		elems = append(elems, &script.IntValue{Value: i})
	}
	return &script.ListValue{Elements: elems}, nil
}

// moduleStub resolves a module name to its minimal in-core
// representation, shared by both DefaultImport (the sandbox's
// allow-listed resolver) and UnrestrictedImport (the unsandboxed
// resolver). Returns nil if name isn't one this core models richly.
func moduleStub(name string) script.Value {
	switch name {
	case "math":
		fields := &script.MapValue{}
		fields.Set(&script.StringValue{Value: "pi"}, &script.FloatValue{Value: math.Pi})
		fields.Set(&script.StringValue{Value: "e"}, &script.FloatValue{Value: math.E})
		fields.Set(&script.StringValue{Value: "sqrt"}, &script.BuiltinFunction{
			Name: "math.sqrt",
			Fn: func(frame *script.Frame, args []script.Value) (script.Value, error) {
				if len(args) != 1 {
					return nil, fmt.Errorf("sqrt() takes exactly one argument")
				}
				n, ok := args[0].(*script.FloatValue)
				if !ok {
					if i, ok := args[0].(*script.IntValue); ok {
						return &script.FloatValue{Value: math.Sqrt(float64(i.Value))}, nil
					}
					return nil, fmt.Errorf("sqrt() argument must be a number")
				}
				return &script.FloatValue{Value: math.Sqrt(n.Value)}, nil
			},
		})
		return fields
	case "string", "copy", "datetime", "functools", "itertools", "random", "re", "time":
		// Minimal stand-ins: the allow-list's other modules are
		// permitted to import but expose no members in this core
		// implementation (spec.md scopes only the import gate itself,
		// not a full standard library).
		return &script.MapValue{}
	default:
		return nil
	}
}

// DefaultImport resolves an allow-listed module name to a minimal module
// object; it is the "default, unhalted import resolver" that
// trace.Modules.Apply wraps for sandboxed scopes. Names outside the
// allow-list fail with a module-not-found error here — the halt-list
// check in Modules.Apply already rejects them before this is reached
// in sandbox mode, but this also guards direct callers.
func DefaultImport(name string) (script.Value, error) {
	if mod := moduleStub(name); mod != nil {
		return mod, nil
	}
	return nil, fmt.Errorf("No module named %q", name)
}

// UnrestrictedImport is installed by trace.DefaultScope: spec.md §4.A
// restricts imports only in sandboxScope, so the unsandboxed scope must
// let any import statement succeed. Known module names resolve to their
// modeled stub; anything else resolves to an empty, otherwise-unusable
// module object rather than failing.
func UnrestrictedImport(name string) (script.Value, error) {
	if mod := moduleStub(name); mod != nil {
		return mod, nil
	}
	return &script.MapValue{}, nil
}
