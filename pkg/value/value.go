// Package value provides a protocol-agnostic representation of decoded
// protobuf messages so the matcher, validator, and renderers can all
// consume one shape without repeated reflection.
package value

import (
	"fmt"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindEnum
)

// Value is a tagged sum over the JSON-ish shapes a decoded protobuf
// message can take. Exactly one of the accessor fields is meaningful for
// a given Kind.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	bytes  []byte
	list   []Value
	fields map[string]Value
	enumN  int32
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, bytes: b} }
func List(items []Value) Value   { return Value{kind: KindList, list: items} }
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, fields: m}
}
func Enum(name string, number int32) Value {
	return Value{kind: KindEnum, s: name, enumN: number}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) String() (string, bool) {
	if v.kind == KindString || v.kind == KindEnum {
		return v.s, true
	}
	return "", false
}
func (v Value) BytesVal() ([]byte, bool) { return v.bytes, v.kind == KindBytes }
func (v Value) ListVal() ([]Value, bool) { return v.list, v.kind == KindList }
func (v Value) MapVal() (map[string]Value, bool) {
	return v.fields, v.kind == KindMap
}
func (v Value) EnumVal() (string, int32, bool) {
	return v.s, v.enumN, v.kind == KindEnum
}

// Field looks up a key when v is a Map, returning (Null(), false) otherwise.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Index looks up a position when v is a List.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Null(), false
	}
	return v.list[i], true
}

// Equal implements the "===-style deep equality" required by the matcher:
// maps compare unordered, lists compare in order, numerics compare by
// numeric value regardless of Int/Float tagging.
func Equal(a, b Value) bool {
	an, aIsNum := numeric(a)
	bn, bIsNum := numeric(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindEnum:
		return a.s == b.s || a.enumN == b.enumN
	case KindBytes:
		if len(a.bytes) != len(b.bytes) {
			return false
		}
		for i := range a.bytes {
			if a.bytes[i] != b.bytes[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for k, av := range a.fields {
			bv, ok := b.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func numeric(v Value) (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// SortedKeys returns a Map's keys in deterministic order, useful for
// diagnostics and stable specificity counting.
func (v Value) SortedKeys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Value) String_() string {
	return fmt.Sprintf("Value{kind=%d}", v.kind)
}

// FromAny lifts a YAML/JSON-decoded literal (as produced by gopkg.in/yaml.v3,
// whose Unmarshal into `any` yields map[string]any/[]any/string/int/
// float64/bool/nil) into a Value, so rule-file literals compare against
// decoded request values with the same Equal function.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case []byte:
		return Bytes(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return List(items)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, val := range t {
			fields[k] = FromAny(val)
		}
		return Map(fields)
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, val := range t {
			fields[fmt.Sprintf("%v", k)] = FromAny(val)
		}
		return Map(fields)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
