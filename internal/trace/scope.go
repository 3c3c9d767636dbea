package trace

import (
	"fmt"
	"sort"

	"github.com/sunholo/ailang-debugger/internal/script"
)

// Well-known globals slot names, matching original_source/src/core/scope.py's
// Globals class constants (__builtins__/__file__/__name__).
const (
	globalBuiltins = "__builtins__"
	globalFile     = "__file__"
	globalName     = "__name__"
)

// allowedModules is the sandbox import allow-list from spec.md §4.A.
var allowedModules = map[string]bool{
	"copy": true, "datetime": true, "functools": true, "itertools": true,
	"math": true, "random": true, "re": true, "string": true, "time": true,
}

// knownModules stands in for the host runtime's full module universe
// (original_source computes this from sys.modules.keys()); it only needs
// to be a superset of allowedModules for DefaultModuleNames/sandboxing to
// behave correctly, so it lists the allow-list plus a representative
// sample of modules a sandbox must deny.
var knownModules = func() []string {
	deny := []string{"os", "sys", "subprocess", "socket", "io", "pickle",
		"ctypes", "threading", "multiprocessing", "shutil", "importlib"}
	names := make([]string, 0, len(allowedModules)+len(deny))
	for m := range allowedModules {
		names = append(names, m)
	}
	names = append(names, deny...)
	sort.Strings(names)
	return names
}()

// DefaultModuleNames lists every module name the embedded runtime knows
// about, mirroring original_source's default_modules_names().
func DefaultModuleNames() []string {
	out := make([]string, len(knownModules))
	copy(out, knownModules)
	return out
}

// Globals is a fluent builder over a module-level globals environment,
// grounded on original_source/src/core/scope.py's Globals class and
// styled after the teacher's builder ergonomics in internal/effects
// (NewCapability + Meta map) for fluent, chainable construction.
type Globals struct {
	props    map[string]interface{}
	builtins map[string]script.Value
}

// NewGlobals seeds a fresh globals environment with a copy of the host's
// default builtins table (DefaultBuiltins) and the standard __name__.
func NewGlobals() *Globals {
	return &Globals{
		props:    map[string]interface{}{globalName: "__main__", globalFile: ""},
		builtins: DefaultBuiltins(),
	}
}

// Property sets a named scope property (e.g. __file__), creating it if
// absent, and returns the builder for chaining.
func (g *Globals) Property(name string, value interface{}) *Globals {
	g.props[name] = value
	return g
}

// Builtin sets (or, with a nil value, removes) a builtin by name. It
// panics with an attribute-style error if the builtins slot was replaced
// by something other than a map, matching original_source's
// AttributeError('global __builtins__ attribute was modified').
func (g *Globals) Builtin(name string, value script.Value) *Globals {
	if g.builtins == nil {
		panic(fmt.Errorf("global __builtins__ attribute was modified"))
	}
	if value == nil {
		delete(g.builtins, name)
	} else {
		g.builtins[name] = value
	}
	return g
}

// Build materializes a deep copy of the accumulated globals into a fresh
// *script.Environment, so mutating the returned scope never leaks into
// scopes built earlier or later (spec.md §4.A Isolation).
func (g *Globals) Build() *script.Environment {
	env := script.NewEnvironment()
	builtinsCopy := make(map[string]script.Value, len(g.builtins))
	for k, v := range g.builtins {
		builtinsCopy[k] = v
	}
	env.SetBuiltins(builtinsCopy)
	if file, ok := g.props[globalFile].(string); ok {
		env.SetFile(file)
	}
	if name, ok := g.props[globalName].(string); ok {
		env.SetName(name)
	}
	return env
}

// DefaultScope returns an unrestricted globals environment attributing
// fileName to compiled user code, matching original_source's
// default_scope(). Unlike SandboxScope, every import succeeds here
// (spec.md §4.A: only sandboxScope restricts imports).
func DefaultScope(fileName string) *script.Environment {
	env := NewGlobals().Property(globalFile, fileName).Build()
	env.Import = UnrestrictedImport
	return env
}

// SandboxScope returns a globals environment with compile/exec/open
// builtins removed and imports outside the allow-list blocked, matching
// original_source's sandbox_scope() and spec.md §4.A's two guarantees.
func SandboxScope(fileName string) *script.Environment {
	builder := NewGlobals().Property(globalFile, fileName)
	for _, name := range []string{"compile", "exec", "open"} {
		builder.Builtin(name, nil)
	}

	halted := NewModules()
	for _, m := range DefaultModuleNames() {
		if !allowedModules[m] {
			halted.Halt(m)
		}
	}

	env := builder.Build()
	halted.Apply(env)
	return env
}

// Modules accumulates a set of module names to block from import,
// grounded on original_source's Modules class.
type Modules struct {
	halted map[string]bool
}

// NewModules creates an empty halt-list.
func NewModules() *Modules { return &Modules{halted: make(map[string]bool)} }

// Halt adds module to the halt-list and returns the receiver for
// chaining.
func (m *Modules) Halt(module string) *Modules {
	m.halted[module] = true
	return m
}

// Apply installs a wrapped import function on env that rejects any
// halted module with a module-not-found failure and otherwise delegates
// to the default, unhalted import resolver — preserving "the host
// import's result" on the success path per SPEC_FULL.md's resolution of
// spec.md's second Open Question.
func (m *Modules) Apply(env *script.Environment) {
	delegate := DefaultImport
	env.Import = func(name string) (script.Value, error) {
		if m.halted[name] {
			return nil, fmt.Errorf("No module named %q", name)
		}
		return delegate(name)
	}
}
