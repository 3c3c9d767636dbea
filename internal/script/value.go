package script

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Value is a runtime value, adapted from the teacher's
// internal/eval/value.go Value interface and extended with set, map,
// class and instance values to cover the heap taxonomy this debugger
// must report (tuple/alist/set/map/other).
type Value interface {
	Type() string
	String() string
}

// IntValue is a scalar integer.
type IntValue struct{ Value int64 }

func (i *IntValue) Type() string   { return "int" }
func (i *IntValue) String() string { return strconv.FormatInt(i.Value, 10) }

// FloatValue is a scalar float.
type FloatValue struct{ Value float64 }

func (f *FloatValue) Type() string   { return "float" }
func (f *FloatValue) String() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// StringValue is a scalar string.
type StringValue struct{ Value string }

func (s *StringValue) Type() string   { return "str" }
func (s *StringValue) String() string { return s.Value }

// BoolValue is a scalar boolean.
type BoolValue struct{ Value bool }

func (b *BoolValue) Type() string { return "bool" }
func (b *BoolValue) String() string {
	if b.Value {
		return "True"
	}
	return "False"
}

// NoneValue is the language's null/unit value; there is exactly one
// logical instance but equality is by type, not identity, so scalars
// stay out of the heap per spec invariant 3.
type NoneValue struct{}

func (*NoneValue) Type() string   { return "none" }
func (*NoneValue) String() string { return "None" }

// ListValue is a mutable ordered sequence ("alist" in the heap taxonomy).
type ListValue struct{ Elements []Value }

func (l *ListValue) Type() string { return "list" }
func (l *ListValue) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TupleValue is an immutable ordered sequence.
type TupleValue struct{ Elements []Value }

func (t *TupleValue) Type() string { return "tuple" }
func (t *TupleValue) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SetValue is an unordered collection with insertion-order iteration,
// deduplicated by String() representation (sufficient for this language's
// scalar-heavy set usage).
type SetValue struct{ Elements []Value }

func (s *SetValue) Type() string { return "set" }
func (s *SetValue) String() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Add inserts v if not already present (by String()), preserving
// insertion order.
func (s *SetValue) Add(v Value) {
	for _, e := range s.Elements {
		if e.String() == v.String() && e.Type() == v.Type() {
			return
		}
	}
	s.Elements = append(s.Elements, v)
}

// MapEntry is one key/value pair of a MapValue, kept in insertion order.
type MapEntry struct {
	Key   Value
	Value Value
}

// MapValue is an insertion-ordered mapping.
type MapValue struct{ Entries []MapEntry }

func (m *MapValue) Type() string { return "map" }
func (m *MapValue) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = fmt.Sprintf("%s: %s", e.Key.String(), e.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set inserts or updates the entry for key, preserving first-insertion
// position on update (matching Python dict semantics).
func (m *MapValue) Set(key, value Value) {
	for i, e := range m.Entries {
		if e.Key.String() == key.String() && e.Key.Type() == key.Type() {
			m.Entries[i].Value = value
			return
		}
	}
	m.Entries = append(m.Entries, MapEntry{key, value})
}

// Get looks up a key by value equality.
func (m *MapValue) Get(key Value) (Value, bool) {
	for _, e := range m.Entries {
		if e.Key.String() == key.String() && e.Key.Type() == key.Type() {
			return e.Value, true
		}
	}
	return nil, false
}

// FunctionValue is a closure: a FuncDef's code paired with the
// environment captured at definition time, adapted from the teacher's
// eval.FunctionValue (Params/Body/Env shape kept, Body narrowed to a
// concrete []Stmt since this language has no typed/untyped duality).
type FunctionValue struct {
	Name   string
	Params []string
	Body   []Stmt
	Env    *Environment
	Line   int
}

func (f *FunctionValue) Type() string   { return "function" }
func (f *FunctionValue) String() string { return fmt.Sprintf("<function %s>", f.Name) }

// ClassValue is a class (type) object: a name, its declaring module, and
// its method table. Classes are the only values the snapshotter treats
// specially when deciding "user-defined" (spec.md invariant 5).
type ClassValue struct {
	Name    string
	Module  string
	Methods map[string]*FunctionValue
}

func (c *ClassValue) Type() string   { return "class" }
func (c *ClassValue) String() string { return fmt.Sprintf("<class '%s'>", c.Name) }

// InstanceValue is an instance of a ClassValue; Fields holds the public
// instance dictionary in declaration/insertion order.
type InstanceValue struct {
	Class  *ClassValue
	Fields *MapValue
}

func (o *InstanceValue) Type() string   { return "instance" }
func (o *InstanceValue) String() string { return fmt.Sprintf("<%s object>", o.Class.Name) }

func (o *InstanceValue) Get(name string) (Value, bool) {
	return o.Fields.Get(&StringValue{name})
}

func (o *InstanceValue) Set(name string, v Value) {
	o.Fields.Set(&StringValue{name}, v)
}

// Identity returns a stable per-run identity string for composite
// (heap-eligible) values, used as the heap map key. It must be computed
// from the value's address, never its contents, per spec.md's design
// note: "key the map on the host's identity hash ... never on
// value-equality."
func Identity(v Value) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return "", false
	}
	switch v.(type) {
	case *ListValue, *TupleValue, *SetValue, *MapValue, *InstanceValue, *FunctionValue, *ClassValue:
		return strconv.FormatUint(uint64(rv.Pointer()), 10), true
	default:
		return "", false
	}
}

// IsScalar reports whether v is an inline scalar under spec.md's Value
// rules (never placed in the heap).
func IsScalar(v Value) bool {
	switch v.(type) {
	case *IntValue, *FloatValue, *StringValue, *BoolValue, *NoneValue:
		return true
	default:
		return false
	}
}

// Truthy implements the language's notion of truthiness for conditions.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case *BoolValue:
		return t.Value
	case *NoneValue:
		return false
	case *IntValue:
		return t.Value != 0
	case *FloatValue:
		return t.Value != 0
	case *StringValue:
		return t.Value != ""
	case *ListValue:
		return len(t.Elements) > 0
	case *TupleValue:
		return len(t.Elements) > 0
	case *SetValue:
		return len(t.Elements) > 0
	case *MapValue:
		return len(t.Entries) > 0
	default:
		return true
	}
}
