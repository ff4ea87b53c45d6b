package validation

import (
	"fmt"
	"regexp"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/wishmock/wishmock/pkg/value"
)

// CELEvaluator evaluates a single message-level CEL expression against
// a decoded message value. No implementation ships in this repository;
// the capability is optional and message_cel constraints degrade to an
// "unsupported_constraint" field error when it is nil, rather than
// silently passing or panicking.
type CELEvaluator interface {
	Eval(expression string, msg value.Value) (bool, error)
}

// Validate runs every constraint the Registry extracted for typeName
// against v, recursing into nested message-typed fields. A nil
// *Registry (no constraint extensions ever loaded) always succeeds.
func (r *Registry) Validate(typeName string, v value.Value, cel CELEvaluator) Result {
	if r == nil {
		return ok()
	}
	res := ok()
	r.validateInto(typeName, "", v, cel, &res)
	return res
}

// validateInto evaluates every constraint for typeName against v,
// recursing into nested messages. In per_message mode, once a leaf
// field has produced a violation, remaining constraints on that same
// field are skipped (one error per failing field), but evaluation
// continues across sibling fields, message-level constraints, and
// nested messages. aggregate mode never skips.
func (r *Registry) validateInto(typeName, pathPrefix string, v value.Value, cel CELEvaluator, res *Result) {
	ir := r.irs[stripDot(typeName)]
	if ir == nil {
		return
	}

	var failedFields map[string]bool
	if r.Mode == ModePerMessage {
		failedFields = make(map[string]bool)
	}

	for _, fc := range ir.FieldConstraints {
		if failedFields[fc.FieldPath] {
			continue
		}
		path := joinPath(pathPrefix, fc.FieldPath)
		fv, present := v.Field(fc.FieldPath)
		before := len(res.Errors)
		evaluateFieldConstraint(r, typeName, fc, path, fv, present, res)
		if failedFields != nil && len(res.Errors) > before {
			failedFields[fc.FieldPath] = true
		}
	}

	for _, mc := range ir.MessageConstraints {
		if cel == nil {
			res.add(FieldError{FieldPath: pathPrefix, ConstraintID: "unsupported_constraint", Message: "message_cel requires a CEL evaluator, none is configured"})
			continue
		}
		passed, err := cel.Eval(mc.CELExpression, v)
		if err != nil {
			res.add(FieldError{FieldPath: pathPrefix, ConstraintID: "message_cel", Message: fmt.Sprintf("expression error: %v", err)})
		} else if !passed {
			res.add(FieldError{FieldPath: pathPrefix, ConstraintID: "message_cel", Message: fmt.Sprintf("failed expression: %s", mc.CELExpression)})
		}
	}

	for fieldName, nestedType := range r.nested[stripDot(typeName)] {
		fv, present := v.Field(fieldName)
		if !present || fv.IsNull() {
			continue
		}
		r.validateInto(nestedType, joinPath(pathPrefix, fieldName), fv, cel, res)
	}
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func evaluateFieldConstraint(r *Registry, typeName string, fc FieldConstraint, path string, fv value.Value, present bool, res *Result) {
	switch fc.Kind {
	case KindRequired:
		if !present || fv.IsNull() || isZeroValue(fv) {
			res.add(FieldError{FieldPath: path, ConstraintID: "required", Message: "field is required"})
		}
		return
	}

	if !present || fv.IsNull() {
		return
	}

	switch fc.Kind {
	case KindMinLen:
		n, ok := paramUint(fc.Params, "value")
		if ok && uint64(length(fv)) < n {
			res.add(FieldError{FieldPath: path, ConstraintID: "min_len", Message: fmt.Sprintf("length must be >= %d", n)})
		}
	case KindMaxLen:
		n, ok := paramUint(fc.Params, "value")
		if ok && uint64(length(fv)) > n {
			res.add(FieldError{FieldPath: path, ConstraintID: "max_len", Message: fmt.Sprintf("length must be <= %d", n)})
		}
	case KindGTE:
		n, ok := paramFloat(fc.Params, "value")
		if f, fok := numericOf(fv); ok && fok && f < n {
			res.add(FieldError{FieldPath: path, ConstraintID: "gte", Message: fmt.Sprintf("must be >= %v", n)})
		}
	case KindLTE:
		n, ok := paramFloat(fc.Params, "value")
		if f, fok := numericOf(fv); ok && fok && f > n {
			res.add(FieldError{FieldPath: path, ConstraintID: "lte", Message: fmt.Sprintf("must be <= %v", n)})
		}
	case KindGT:
		n, ok := paramFloat(fc.Params, "value")
		if f, fok := numericOf(fv); ok && fok && f <= n {
			res.add(FieldError{FieldPath: path, ConstraintID: "gt", Message: fmt.Sprintf("must be > %v", n)})
		}
	case KindLT:
		n, ok := paramFloat(fc.Params, "value")
		if f, fok := numericOf(fv); ok && fok && f >= n {
			res.add(FieldError{FieldPath: path, ConstraintID: "lt", Message: fmt.Sprintf("must be < %v", n)})
		}
	case KindConst:
		want, _ := fc.Params["value"].(string)
		if s, ok := stringOf(fv); !ok || s != want {
			res.add(FieldError{FieldPath: path, ConstraintID: "const", Message: fmt.Sprintf("must equal %q", want)})
		}
	case KindIn:
		values, _ := fc.Params["values"].([]string)
		s, ok := stringOf(fv)
		if ok && !contains(values, s) {
			res.add(FieldError{FieldPath: path, ConstraintID: "in", Message: fmt.Sprintf("must be one of %v", values)})
		}
	case KindNotIn:
		values, _ := fc.Params["values"].([]string)
		s, ok := stringOf(fv)
		if ok && contains(values, s) {
			res.add(FieldError{FieldPath: path, ConstraintID: "not_in", Message: fmt.Sprintf("must not be one of %v", values)})
		}
	case KindPattern:
		pattern, _ := fc.Params["value"].(string)
		s, ok := stringOf(fv)
		if ok && pattern != "" {
			matched, err := regexp.MatchString(pattern, s)
			if err != nil || !matched {
				res.add(FieldError{FieldPath: path, ConstraintID: "pattern", Message: fmt.Sprintf("must match pattern %q", pattern)})
			}
		}
	case KindEmail, KindUUID, KindHostname, KindIP:
		s, ok := stringOf(fv)
		if ok && !ValidateFormat(string(fc.Kind), s) {
			res.add(FieldError{FieldPath: path, ConstraintID: string(fc.Kind), Message: fmt.Sprintf("must be a valid %s", fc.Kind)})
		}
	case KindEnumDefinedOnly:
		name, number, ok := fv.EnumVal()
		if !ok {
			return
		}
		ed := r.enums[stripDot(typeName)][fc.FieldPath]
		if ed == nil {
			return
		}
		if ed.Values().ByNumber(protoreflect.EnumNumber(number)) == nil && ed.Values().ByName(protoreflect.Name(name)) == nil {
			res.add(FieldError{FieldPath: path, ConstraintID: "enum_defined_only", Message: fmt.Sprintf("%d is not a defined enum value", number)})
		}
	}
}

func isZeroValue(v value.Value) bool {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.String()
		return s == ""
	case value.KindBytes:
		b, _ := v.BytesVal()
		return len(b) == 0
	case value.KindInt:
		i, _ := v.Int()
		return i == 0
	case value.KindFloat:
		f, _ := v.Float()
		return f == 0
	case value.KindBool:
		b, _ := v.Bool()
		return !b
	case value.KindList:
		l, _ := v.ListVal()
		return len(l) == 0
	case value.KindMap:
		m, _ := v.MapVal()
		return len(m) == 0
	}
	return false
}

func length(v value.Value) int {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.String()
		return len(s)
	case value.KindBytes:
		b, _ := v.BytesVal()
		return len(b)
	case value.KindList:
		l, _ := v.ListVal()
		return len(l)
	case value.KindMap:
		m, _ := v.MapVal()
		return len(m)
	}
	return 0
}

func numericOf(v value.Value) (float64, bool) {
	if i, ok := v.Int(); ok {
		return float64(i), true
	}
	if f, ok := v.Float(); ok {
		return f, true
	}
	return 0, false
}

func stringOf(v value.Value) (string, bool) {
	return v.String()
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func paramUint(params map[string]any, key string) (uint64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		return uint64(n), true
	}
	return 0, false
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
