package schema

import (
	"encoding/json"
	"fmt"

	"github.com/wishmock/wishmock/pkg/value"
)

// marshalJSONValue renders a plain interface{} tree (as produced by a
// YAML/JSON rule body) into JSON bytes, the input shape protojson.Unmarshal
// expects.
func marshalJSONValue(v any) ([]byte, error) {
	return json.Marshal(normalizeForJSON(v))
}

// normalizeForJSON converts map[interface{}]interface{} nodes (as some
// YAML decoders produce, though gopkg.in/yaml.v3 already yields
// map[string]interface{}) into a tree encoding/json can marshal.
func normalizeForJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForJSON(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeForJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForJSON(val)
		}
		return out
	default:
		return t
	}
}

// unmarshalJSONValue parses JSON bytes into the tagged-sum Value tree.
func unmarshalJSONValue(raw []byte) (value.Value, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return value.Null(), err
	}
	return anyToValue(generic), nil
}

func anyToValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return value.Int(int64(t))
		}
		return value.Float(t)
	case string:
		return value.String(t)
	case []any:
		items := make([]value.Value, len(t))
		for i, it := range t {
			items[i] = anyToValue(it)
		}
		return value.List(items)
	case map[string]any:
		fields := make(map[string]value.Value, len(t))
		for k, val := range t {
			fields[k] = anyToValue(val)
		}
		return value.Map(fields)
	default:
		return value.Null()
	}
}
