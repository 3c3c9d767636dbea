package trace

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sunholo/ailang-debugger/internal/script"
)

// maxSafeInteger is 2^53, the largest magnitude an IEEE-754 double can
// represent exactly; spec.md invariant 4 requires anything at or beyond
// it to be stringified instead of transmitted as a number.
const maxSafeInteger = 1 << 53

// Value is the wire-level counterpart of spec.md's Value: either an
// inline scalar or a single-element heap reference. MarshalJSON/
// UnmarshalJSON give it exactly the two on-the-wire shapes spec.md §3
// describes.
type Value struct {
	IsRef  bool        `json:"-" yaml:"-"`
	Ref    string      `json:"ref,omitempty" yaml:"ref,omitempty"` // set when IsRef
	Scalar interface{} `json:"scalar,omitempty" yaml:"scalar,omitempty"` // int64, float64 or string; set when !IsRef
}

func inline(scalar interface{}) Value { return Value{Scalar: scalar} }
func ref(id string) Value             { return Value{IsRef: true, Ref: id} }

// wireValue is the on-the-wire shape of a Value: a reference carries
// only {"ref": id}, a scalar is serialized bare.
type wireValue struct {
	Ref string `json:"ref" yaml:"ref"`
}

// MarshalJSON renders a ref as {"ref": id} and a scalar as itself,
// matching spec.md §3's "either a reference... or an inline scalar".
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsRef {
		return json.Marshal(wireValue{Ref: v.Ref})
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON recognizes the {"ref": id} shape; anything else is
// treated as an inline scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err == nil && w.Ref != "" {
		*v = ref(w.Ref)
		return nil
	}
	var scalar interface{}
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	*v = inline(scalar)
	return nil
}

// MarshalYAML mirrors MarshalJSON for gopkg.in/yaml.v3 output.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.IsRef {
		return wireValue{Ref: v.Ref}, nil
	}
	return v.Scalar, nil
}

// UnmarshalYAML mirrors UnmarshalJSON for gopkg.in/yaml.v3 input.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var w wireValue
	if err := node.Decode(&w); err == nil && w.Ref != "" {
		*v = ref(w.Ref)
		return nil
	}
	var scalar interface{}
	if err := node.Decode(&scalar); err != nil {
		return err
	}
	*v = inline(scalar)
	return nil
}

// Member is one {key, value} pair of a HeapObject, in the container's
// natural iteration order.
type Member struct {
	Key   Value `json:"key" yaml:"key"`
	Value Value `json:"value" yaml:"value"`
}

// HeapObject is spec.md's Heap Object record.
type HeapObject struct {
	HeapType     string   `json:"type" yaml:"type"` // "tuple" | "alist" | "set" | "map" | "other"
	LanguageType string   `json:"languageType" yaml:"languageType"`
	UserDefined  bool     `json:"userDefined" yaml:"userDefined"`
	Members      []Member `json:"members" yaml:"members"`
}

// FrameRecord is spec.md's Frame Record.
type FrameRecord struct {
	Line      int    `json:"line" yaml:"line"` // 0-based
	Name      string `json:"name" yaml:"name"`
	Variables []struct {
		Name  string `json:"name" yaml:"name"`
		Value Value  `json:"value" yaml:"value"`
	} `json:"variables" yaml:"variables"`
}

// Snapshot is spec.md's Snapshot record: the pause-point event kind, the
// user-code call stack (outermost first) and the deduplicated heap.
type Snapshot struct {
	EventType string                 `json:"eventType" yaml:"eventType"`
	Stack     []FrameRecord          `json:"stack" yaml:"stack"`
	Heap      map[string]*HeapObject `json:"heap" yaml:"heap"`
}

// Snapshotter walks a paused frame chain and produces a cycle-safe,
// identity-preserving Snapshot, grounded on
// original_source/src/inspector.py's Inspector._inspect_object.
type Snapshotter struct {
	fileName string
}

// NewSnapshotter creates a snapshotter scoped to fileName, the same
// fileName the Scope Builder attributed to the compiled program; only
// frames whose File matches are retained in the stack.
func NewSnapshotter(fileName string) *Snapshotter {
	return &Snapshotter{fileName: fileName}
}

// Snapshot walks from current up the Parent chain, stopping at (and
// excluding) sentinel, retaining only user frames, and builds the
// resulting Snapshot for eventType.
func (sn *Snapshotter) Snapshot(eventType string, current, sentinel *script.Frame) Snapshot {
	snap, _ := sn.snapshot(eventType, current, sentinel, nil)
	return snap
}

// SnapshotWithValue behaves like Snapshot, but additionally walks extra
// (e.g. an EVAL action's product) into the very same heap and
// user-class tables the snapshot's own frames use. This keeps object
// identity consistent between the two — if extra is already reachable
// from a frame variable it resolves to the same heap entry, and if it's
// a fresh composite it is registered into the returned snapshot's heap
// rather than an orphaned one, per spec.md §4.C ("subject to the same
// Value/heap rules as variables").
func (sn *Snapshotter) SnapshotWithValue(eventType string, current, sentinel *script.Frame, extra script.Value) (Snapshot, Value) {
	return sn.snapshot(eventType, current, sentinel, &extra)
}

func (sn *Snapshotter) snapshot(eventType string, current, sentinel *script.Frame, extra *script.Value) (Snapshot, Value) {
	var frames []*script.Frame
	for f := current; f != nil && f != sentinel; f = f.Parent {
		if IsUserFrame(f, sn.fileName) {
			frames = append(frames, f)
		}
	}
	// reverse: outermost caller first
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	snap := Snapshot{EventType: eventType, Heap: make(map[string]*HeapObject)}
	if len(frames) == 0 {
		var extraVal Value
		if extra != nil {
			extraVal = sn.walk(*extra, snap.Heap, map[*script.ClassValue]bool{}, "")
		}
		return snap, extraVal
	}

	module := frames[0].Env.Name()

	// First pass: discover classes declared in the user module, reachable
	// from any retained frame's own locals (original_source's two-pass
	// design: discover user classes before classifying instances).
	userClasses := make(map[*script.ClassValue]bool)
	for _, f := range frames {
		for _, nv := range f.Env.OrderedNames() {
			if cls, ok := nv.Value.(*script.ClassValue); ok && cls.Module == module {
				userClasses[cls] = true
			}
		}
	}

	// Second pass: emit each frame's public variables, walking values
	// into the heap as needed.
	for _, f := range frames {
		rec := FrameRecord{Line: f.Line - 1, Name: f.Name}
		for _, nv := range f.Env.OrderedNames() {
			if strings.HasPrefix(nv.Name, "_") {
				continue
			}
			v := sn.walk(nv.Value, snap.Heap, userClasses, module)
			rec.Variables = append(rec.Variables, struct {
				Name  string `json:"name" yaml:"name"`
				Value Value  `json:"value" yaml:"value"`
			}{nv.Name, v})
		}
		snap.Stack = append(snap.Stack, rec)
	}

	var extraVal Value
	if extra != nil {
		extraVal = sn.walk(*extra, snap.Heap, userClasses, module)
	}
	return snap, extraVal
}

// walk is the memoized recursive Value walker from spec.md §4.D's table.
func (sn *Snapshotter) walk(v script.Value, heap map[string]*HeapObject, userClasses map[*script.ClassValue]bool, module string) Value {
	switch t := v.(type) {
	case *script.BoolValue, *script.NoneValue, *script.StringValue:
		return inline(t.String())
	case *script.IntValue:
		if absInt64(t.Value) < maxSafeInteger {
			return inline(t.Value)
		}
		return inline(strconv.FormatInt(t.Value, 10))
	case *script.FloatValue:
		if math.Abs(t.Value) < maxSafeInteger {
			return inline(t.Value)
		}
		return inline(strconv.FormatFloat(t.Value, 'g', -1, 64))
	case *script.ClassValue:
		if t.Module == module {
			userClasses[t] = true
		}
		return inline(t.String())
	}

	id, composite := script.Identity(v)
	if composite {
		if _, seen := heap[id]; seen {
			return ref(id)
		}
	}

	switch c := v.(type) {
	case *script.ListValue:
		obj := sn.register(heap, id, "alist", c.Type())
		for i, e := range c.Elements {
			obj.Members = append(obj.Members, Member{inline(int64(i)), sn.walk(e, heap, userClasses, module)})
		}
		return ref(id)
	case *script.TupleValue:
		obj := sn.register(heap, id, "tuple", c.Type())
		for i, e := range c.Elements {
			obj.Members = append(obj.Members, Member{inline(int64(i)), sn.walk(e, heap, userClasses, module)})
		}
		return ref(id)
	case *script.SetValue:
		obj := sn.register(heap, id, "set", c.Type())
		for i, e := range c.Elements {
			obj.Members = append(obj.Members, Member{inline(int64(i)), sn.walk(e, heap, userClasses, module)})
		}
		return ref(id)
	case *script.MapValue:
		obj := sn.register(heap, id, "map", c.Type())
		for _, entry := range c.Entries {
			obj.Members = append(obj.Members, Member{
				sn.walk(entry.Key, heap, userClasses, module),
				sn.walk(entry.Value, heap, userClasses, module),
			})
		}
		return ref(id)
	case *script.InstanceValue:
		if userClasses[c.Class] {
			obj := sn.register(heap, id, "other", c.Class.Name)
			obj.UserDefined = true
			for _, entry := range c.Fields.Entries {
				name := entry.Key.String()
				if strings.HasPrefix(name, "_") {
					continue
				}
				obj.Members = append(obj.Members, Member{inline(name), sn.walk(entry.Value, heap, userClasses, module)})
			}
			return ref(id)
		}
	}

	// Anything else (functions, builtins, instances of undiscovered
	// classes): degrade to the object's type, per spec.md's Value walker
	// table ("substitute the object's type"). We do not recurse further —
	// the type's own repr is always an inline scalar.
	return inline(fmt.Sprintf("<class '%s'>", v.Type()))
}

func (sn *Snapshotter) register(heap map[string]*HeapObject, id, heapType, languageType string) *HeapObject {
	obj := &HeapObject{HeapType: heapType, LanguageType: languageType}
	heap[id] = obj // registered before members are walked: breaks cycles
	return obj
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
