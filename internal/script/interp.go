package script

import (
	"fmt"
	"strings"
)

// Frame is a single activation record, the language's equivalent of a
// Python frame object: it exposes the attributes internal/trace needs
// (source file, current line, qualifying name, locals) without leaking
// interpreter-internal control state.
type Frame struct {
	File   string
	Line   int // 1-based, current statement's source line
	Name   string
	Env    *Environment
	Parent *Frame
}

// Event is what the trace hook receives on every call/line/exception/
// return occurrence, mirroring sys.settrace's (frame, event, arg) triple.
type Event struct {
	Kind  string // "call", "line", "exception", "return"
	Frame *Frame
	Err   error // populated only for "exception"
}

// TraceHook is invoked synchronously on every traceable event. Returning
// a non-nil error aborts the running program; the interpreter propagates
// it straight up through every pending statement/call, the same way a
// QUIT-triggered interrupt unwinds a Python exec() call in the original
// design (spec.md §4.F, §9).
type TraceHook func(Event) error

// ScriptError is a raised runtime exception: a kind (exception class
// name), a human message, positional arguments, and the call stack
// captured at the raise site for traceback formatting.
type ScriptError struct {
	Kind    string
	Message string
	Args    []Value
	Stack   []*Frame
}

func (e *ScriptError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Traceback renders the captured stack the way Python's
// traceback.format_exception does, one line per frame plus a final
// "Kind: message" line.
func (e *ScriptError) Traceback() []string {
	lines := []string{"Traceback (most recent call last):"}
	for _, f := range e.Stack {
		lines = append(lines, fmt.Sprintf("  File \"%s\", line %d, in %s", f.File, f.Line, f.Name))
	}
	lines = append(lines, fmt.Sprintf("%s: %s", e.Kind, e.Message))
	return lines
}

func raise(frame *Frame, kind, format string, args ...interface{}) *ScriptError {
	stack := []*Frame{}
	for f := frame; f != nil; f = f.Parent {
		stack = append([]*Frame{f}, stack...)
	}
	return &ScriptError{Kind: kind, Message: fmt.Sprintf(format, args...), Stack: stack}
}

// BuiltinFunction wraps a host-provided function as a callable Value.
type BuiltinFunction struct {
	Name string
	Fn   func(frame *Frame, args []Value) (Value, error)
}

func (b *BuiltinFunction) Type() string   { return "builtin_function" }
func (b *BuiltinFunction) String() string { return fmt.Sprintf("<built-in function %s>", b.Name) }

// Interp is a tree-walking evaluator over a parsed Program. It mirrors
// the shape of the teacher's internal/eval evaluators (an Environment-
// threading Eval for each node kind) but is statement-oriented and fires
// a TraceHook around every call/line/return/exception event.
type Interp struct {
	hook TraceHook
}

// NewInterp creates an interpreter with no hook installed; RunTrace
// installs one before execution begins.
func NewInterp() *Interp { return &Interp{} }

// SetTraceHook installs (or, with nil, removes) the per-event hook.
func (in *Interp) SetTraceHook(hook TraceHook) { in.hook = hook }

func (in *Interp) fire(kind string, frame *Frame, err error) error {
	if in.hook == nil {
		return nil
	}
	return in.hook(Event{Kind: kind, Frame: frame, Err: err})
}

// controlReturn is used internally (via Go's normal error channel, not
// panic/recover) to unwind a function body once a `return` statement is
// reached.
type controlReturn struct{ Value Value }

func (controlReturn) Error() string { return "return" }

// EvalExpr parses and evaluates a single expression against frame's
// environment, without firing any trace events. It is intentionally
// impure: the expression may mutate values reachable from env, and
// those mutations are visible to subsequent statements and snapshots
// (spec.md §4.C).
func (in *Interp) EvalExpr(src string, env *Environment, frame *Frame) (Value, error) {
	expr, err := ParseExpr([]byte(src))
	if err != nil {
		return nil, raise(frame, "SyntaxError", "%s", err.Error())
	}
	return in.eval(expr, env, frame)
}

// Run executes a parsed program's top-level statements in env's module
// frame, firing trace events as it goes. It returns the first
// ScriptError or hook-abort error encountered, or nil on natural
// completion.
func (in *Interp) Run(prog *Program, env *Environment) error {
	// Unlike callFunction, the module's own top-level execution fires no
	// "call" event: tracing begins already inside the module frame, the
	// same way sys.settrace's initial call establishes a frame's local
	// tracer without itself dispatching a pause (spec.md §8 scenario 1
	// counts exactly one traceable event per executed line plus one
	// final "return").
	frame := &Frame{File: env.File(), Name: "<module>", Env: env}
	_, err := in.execBlock(prog.Stmts, env, frame)
	if se, ok := err.(*ScriptError); ok {
		if fireErr := in.fire("exception", frame, se); fireErr != nil {
			return fireErr
		}
		return se
	}
	if err != nil {
		return err
	}
	return in.fire("return", frame, nil)
}

// execBlock executes stmts in order, firing a "line" event before each
// one, and returns early (with the returned value and a controlReturn
// error) if a Return statement is reached.
func (in *Interp) execBlock(stmts []Stmt, env *Environment, frame *Frame) (Value, error) {
	for _, stmt := range stmts {
		frame.Line = stmt.StmtLine()
		if err := in.fire("line", frame, nil); err != nil {
			return nil, err
		}
		val, err := in.execStmt(stmt, env, frame)
		if err != nil {
			if cr, ok := err.(controlReturn); ok {
				return cr.Value, controlReturn{cr.Value}
			}
			return nil, err
		}
		_ = val
	}
	return nil, nil
}

func (in *Interp) execStmt(stmt Stmt, env *Environment, frame *Frame) (Value, error) {
	switch s := stmt.(type) {
	case *Pass:
		return nil, nil
	case *ExprStmt:
		_, err := in.eval(s.X, env, frame)
		return nil, err
	case *Assign:
		val, err := in.eval(s.Value, env, frame)
		if err != nil {
			return nil, err
		}
		return nil, in.assign(s.Target, val, env, frame)
	case *Return:
		if s.Value == nil {
			return nil, controlReturn{&NoneValue{}}
		}
		val, err := in.eval(s.Value, env, frame)
		if err != nil {
			return nil, err
		}
		return nil, controlReturn{val}
	case *If:
		cond, err := in.eval(s.Cond, env, frame)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			_, err := in.execBlock(s.Then, env, frame)
			return nil, err
		}
		if s.Else != nil {
			_, err := in.execBlock(s.Else, env, frame)
			return nil, err
		}
		return nil, nil
	case *While:
		for {
			cond, err := in.eval(s.Cond, env, frame)
			if err != nil {
				return nil, err
			}
			if !Truthy(cond) {
				return nil, nil
			}
			if _, err := in.execBlock(s.Body, env, frame); err != nil {
				return nil, err
			}
		}
	case *FuncDef:
		env.Set(s.Name, &FunctionValue{Name: s.Name, Params: s.Params, Body: s.Body, Env: env, Line: s.Line})
		return nil, nil
	case *ClassDef:
		cls := &ClassValue{Name: s.Name, Module: env.Name(), Methods: make(map[string]*FunctionValue)}
		for _, m := range s.Body {
			mCopy := m
			cls.Methods[m.Name] = &FunctionValue{Name: m.Name, Params: m.Params, Body: mCopy.Body, Env: env, Line: m.Line}
		}
		env.Set(s.Name, cls)
		return nil, nil
	case *Import:
		root := env.Root()
		if root.Import == nil {
			return nil, raise(frame, "ImportError", "no import hook installed")
		}
		mod, err := root.Import(s.Module)
		if err != nil {
			return nil, raise(frame, "ModuleNotFoundError", "%s", err.Error())
		}
		env.Set(s.Module, mod)
		return nil, nil
	default:
		return nil, raise(frame, "SyntaxError", "unsupported statement %T", stmt)
	}
}

func (in *Interp) assign(target Expr, val Value, env *Environment, frame *Frame) error {
	switch t := target.(type) {
	case *Ident:
		env.Set(t.Name, val)
		return nil
	case *Attr:
		obj, err := in.eval(t.X, env, frame)
		if err != nil {
			return err
		}
		inst, ok := obj.(*InstanceValue)
		if !ok {
			return raise(frame, "AttributeError", "cannot set attribute on %s", obj.Type())
		}
		inst.Set(t.Field, val)
		return nil
	case *Index:
		obj, err := in.eval(t.X, env, frame)
		if err != nil {
			return err
		}
		idx, err := in.eval(t.Index, env, frame)
		if err != nil {
			return err
		}
		switch c := obj.(type) {
		case *ListValue:
			i, ok := idx.(*IntValue)
			if !ok || i.Value < 0 || int(i.Value) >= len(c.Elements) {
				return raise(frame, "IndexError", "list assignment index out of range")
			}
			c.Elements[i.Value] = val
			return nil
		case *MapValue:
			c.Set(idx, val)
			return nil
		default:
			return raise(frame, "TypeError", "%s does not support item assignment", obj.Type())
		}
	default:
		return raise(frame, "SyntaxError", "invalid assignment target")
	}
}

func (in *Interp) eval(expr Expr, env *Environment, frame *Frame) (Value, error) {
	switch e := expr.(type) {
	case *IntLit:
		return &IntValue{e.Value}, nil
	case *FloatLit:
		return &FloatValue{e.Value}, nil
	case *StringLit:
		return &StringValue{e.Value}, nil
	case *BoolLit:
		return &BoolValue{e.Value}, nil
	case *NoneLit:
		return &NoneValue{}, nil
	case *Ident:
		if v, ok := env.Get(e.Name); ok {
			return v, nil
		}
		return nil, raise(frame, "NameError", "name '%s' is not defined", e.Name)
	case *ListLit:
		vals, err := in.evalList(e.Elements, env, frame)
		if err != nil {
			return nil, err
		}
		return &ListValue{vals}, nil
	case *TupleLit:
		vals, err := in.evalList(e.Elements, env, frame)
		if err != nil {
			return nil, err
		}
		return &TupleValue{vals}, nil
	case *SetLit:
		vals, err := in.evalList(e.Elements, env, frame)
		if err != nil {
			return nil, err
		}
		set := &SetValue{}
		for _, v := range vals {
			set.Add(v)
		}
		return set, nil
	case *MapLit:
		m := &MapValue{}
		for i := range e.Keys {
			k, err := in.eval(e.Keys[i], env, frame)
			if err != nil {
				return nil, err
			}
			v, err := in.eval(e.Values[i], env, frame)
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case *UnaryExpr:
		return in.evalUnary(e, env, frame)
	case *BinaryExpr:
		return in.evalBinary(e, env, frame)
	case *Attr:
		return in.evalAttr(e, env, frame)
	case *Index:
		return in.evalIndex(e, env, frame)
	case *Call:
		return in.evalCall(e, env, frame)
	default:
		return nil, raise(frame, "SyntaxError", "unsupported expression %T", expr)
	}
}

func (in *Interp) evalList(exprs []Expr, env *Environment, frame *Frame) ([]Value, error) {
	vals := make([]Value, 0, len(exprs))
	for _, x := range exprs {
		v, err := in.eval(x, env, frame)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (in *Interp) evalUnary(e *UnaryExpr, env *Environment, frame *Frame) (Value, error) {
	x, err := in.eval(e.X, env, frame)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "not":
		return &BoolValue{!Truthy(x)}, nil
	case "-":
		switch n := x.(type) {
		case *IntValue:
			return &IntValue{-n.Value}, nil
		case *FloatValue:
			return &FloatValue{-n.Value}, nil
		}
		return nil, raise(frame, "TypeError", "bad operand type for unary -: '%s'", x.Type())
	}
	return nil, raise(frame, "SyntaxError", "unknown unary operator %q", e.Op)
}

func (in *Interp) evalBinary(e *BinaryExpr, env *Environment, frame *Frame) (Value, error) {
	if e.Op == "and" {
		l, err := in.eval(e.Left, env, frame)
		if err != nil || !Truthy(l) {
			return l, err
		}
		return in.eval(e.Right, env, frame)
	}
	if e.Op == "or" {
		l, err := in.eval(e.Left, env, frame)
		if err != nil || Truthy(l) {
			return l, err
		}
		return in.eval(e.Right, env, frame)
	}
	l, err := in.eval(e.Left, env, frame)
	if err != nil {
		return nil, err
	}
	r, err := in.eval(e.Right, env, frame)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "==":
		return &BoolValue{valuesEqual(l, r)}, nil
	case "!=":
		return &BoolValue{!valuesEqual(l, r)}, nil
	}
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if e.Op == "+" {
		if ls, ok := l.(*StringValue); ok {
			if rs, ok := r.(*StringValue); ok {
				return &StringValue{ls.Value + rs.Value}, nil
			}
		}
		if ll, ok := l.(*ListValue); ok {
			if rl, ok := r.(*ListValue); ok {
				out := append(append([]Value{}, ll.Elements...), rl.Elements...)
				return &ListValue{out}, nil
			}
		}
	}
	if !lok || !rok {
		return nil, raise(frame, "TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", e.Op, l.Type(), r.Type())
	}
	bothInt := l.Type() == "int" && r.Type() == "int"
	switch e.Op {
	case "+":
		return numResult(lf+rf, bothInt), nil
	case "-":
		return numResult(lf-rf, bothInt), nil
	case "*":
		return numResult(lf*rf, bothInt), nil
	case "/":
		if rf == 0 {
			return nil, raise(frame, "ZeroDivisionError", "division by zero")
		}
		return &FloatValue{lf / rf}, nil
	case "%":
		if rf == 0 {
			return nil, raise(frame, "ZeroDivisionError", "modulo by zero")
		}
		return numResult(float64(int64(lf)%int64(rf)), bothInt), nil
	case "<":
		return &BoolValue{lf < rf}, nil
	case "<=":
		return &BoolValue{lf <= rf}, nil
	case ">":
		return &BoolValue{lf > rf}, nil
	case ">=":
		return &BoolValue{lf >= rf}, nil
	}
	return nil, raise(frame, "SyntaxError", "unknown operator %q", e.Op)
}

func numResult(f float64, asInt bool) Value {
	if asInt {
		return &IntValue{int64(f)}
	}
	return &FloatValue{f}
}

func asNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case *IntValue:
		return float64(n.Value), true
	case *FloatValue:
		return n.Value, true
	default:
		return 0, false
	}
}

func valuesEqual(l, r Value) bool {
	if l.Type() != r.Type() {
		lf, lok := asNumber(l)
		rf, rok := asNumber(r)
		if lok && rok {
			return lf == rf
		}
		return false
	}
	return l.String() == r.String()
}

func (in *Interp) evalAttr(e *Attr, env *Environment, frame *Frame) (Value, error) {
	obj, err := in.eval(e.X, env, frame)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *InstanceValue:
		if v, ok := o.Get(e.Field); ok {
			return v, nil
		}
		if m, ok := o.Class.Methods[e.Field]; ok {
			return bindMethod(m, o), nil
		}
		return nil, raise(frame, "AttributeError", "'%s' object has no attribute '%s'", o.Class.Name, e.Field)
	default:
		return nil, raise(frame, "AttributeError", "'%s' object has no attribute '%s'", obj.Type(), e.Field)
	}
}

// bindMethod captures `self` in a synthetic closure environment so a
// method call looks exactly like calling any other FunctionValue.
func bindMethod(m *FunctionValue, self *InstanceValue) *FunctionValue {
	boundEnv := m.Env.NewChildEnvironment()
	boundEnv.Set("self", self)
	params := m.Params
	if len(params) > 0 && params[0] == "self" {
		params = params[1:]
	}
	return &FunctionValue{Name: m.Name, Params: params, Body: m.Body, Env: boundEnv, Line: m.Line}
}

func (in *Interp) evalIndex(e *Index, env *Environment, frame *Frame) (Value, error) {
	obj, err := in.eval(e.X, env, frame)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.Index, env, frame)
	if err != nil {
		return nil, err
	}
	switch c := obj.(type) {
	case *ListValue:
		i, ok := idx.(*IntValue)
		if !ok || i.Value < 0 || int(i.Value) >= len(c.Elements) {
			return nil, raise(frame, "IndexError", "list index out of range")
		}
		return c.Elements[i.Value], nil
	case *TupleValue:
		i, ok := idx.(*IntValue)
		if !ok || i.Value < 0 || int(i.Value) >= len(c.Elements) {
			return nil, raise(frame, "IndexError", "tuple index out of range")
		}
		return c.Elements[i.Value], nil
	case *MapValue:
		v, ok := c.Get(idx)
		if !ok {
			return nil, raise(frame, "KeyError", "%s", idx.String())
		}
		return v, nil
	case *StringValue:
		i, ok := idx.(*IntValue)
		if !ok || i.Value < 0 || int(i.Value) >= len([]rune(c.Value)) {
			return nil, raise(frame, "IndexError", "string index out of range")
		}
		return &StringValue{string([]rune(c.Value)[i.Value])}, nil
	default:
		return nil, raise(frame, "TypeError", "'%s' object is not subscriptable", obj.Type())
	}
}

func (in *Interp) evalCall(e *Call, env *Environment, frame *Frame) (Value, error) {
	// Builtin collection methods called through attribute syntax, e.g.
	// lst.append(x), m.get(k), s.add(x) — resolved before generic
	// attribute lookup since lists/maps/sets have no ClassValue.
	if attr, ok := e.Func.(*Attr); ok {
		recv, err := in.eval(attr.X, env, frame)
		if err != nil {
			return nil, err
		}
		if v, handled, err := in.tryBuiltinMethod(recv, attr.Field, e.Args, env, frame); handled {
			return v, err
		}
	}

	callee, err := in.eval(e.Func, env, frame)
	if err != nil {
		return nil, err
	}
	args, err := in.evalList(e.Args, env, frame)
	if err != nil {
		return nil, err
	}

	switch fn := callee.(type) {
	case *BuiltinFunction:
		return fn.Fn(frame, args)
	case *ClassValue:
		inst := &InstanceValue{Class: fn, Fields: &MapValue{}}
		if init, ok := fn.Methods["__init__"]; ok {
			if _, err := in.callFunction(bindMethod(init, inst), args, frame); err != nil {
				return nil, err
			}
		}
		return inst, nil
	case *FunctionValue:
		return in.callFunction(fn, args, frame)
	default:
		return nil, raise(frame, "TypeError", "'%s' object is not callable", callee.Type())
	}
}

func (in *Interp) callFunction(fn *FunctionValue, args []Value, caller *Frame) (Value, error) {
	if len(args) != len(fn.Params) {
		return nil, raise(caller, "TypeError", "%s() takes %d arguments but %d were given", fn.Name, len(fn.Params), len(args))
	}
	callEnv := fn.Env.NewChildEnvironment()
	for i, p := range fn.Params {
		callEnv.Set(p, args[i])
	}
	frame := &Frame{File: caller.File, Name: fn.Name, Env: callEnv, Parent: caller}
	frame.Line = fn.Line
	if err := in.fire("call", frame, nil); err != nil {
		return nil, err
	}
	val, err := in.execBlock(fn.Body, callEnv, frame)
	if cr, ok := err.(controlReturn); ok {
		if fireErr := in.fire("return", frame, nil); fireErr != nil {
			return nil, fireErr
		}
		return cr.Value, nil
	}
	if se, ok := err.(*ScriptError); ok {
		if fireErr := in.fire("exception", frame, se); fireErr != nil {
			return nil, fireErr
		}
		return nil, se
	}
	if err != nil {
		return nil, err
	}
	if fireErr := in.fire("return", frame, nil); fireErr != nil {
		return nil, fireErr
	}
	return val, nil
}

func (in *Interp) tryBuiltinMethod(recv Value, field string, argExprs []Expr, env *Environment, frame *Frame) (Value, bool, error) {
	switch c := recv.(type) {
	case *ListValue:
		switch field {
		case "append":
			args, err := in.evalList(argExprs, env, frame)
			if err != nil {
				return nil, true, err
			}
			c.Elements = append(c.Elements, args...)
			return &NoneValue{}, true, nil
		case "pop":
			if len(c.Elements) == 0 {
				return nil, true, raise(frame, "IndexError", "pop from empty list")
			}
			last := c.Elements[len(c.Elements)-1]
			c.Elements = c.Elements[:len(c.Elements)-1]
			return last, true, nil
		}
	case *SetValue:
		if field == "add" {
			args, err := in.evalList(argExprs, env, frame)
			if err != nil {
				return nil, true, err
			}
			for _, a := range args {
				c.Add(a)
			}
			return &NoneValue{}, true, nil
		}
	case *MapValue:
		switch field {
		case "get":
			args, err := in.evalList(argExprs, env, frame)
			if err != nil {
				return nil, true, err
			}
			if v, ok := c.Get(args[0]); ok {
				return v, true, nil
			}
			if len(args) > 1 {
				return args[1], true, nil
			}
			return &NoneValue{}, true, nil
		}
	case *StringValue:
		if field == "upper" {
			return &StringValue{strings.ToUpper(c.Value)}, true, nil
		}
	}
	return nil, false, nil
}
