package schema

import "google.golang.org/protobuf/reflect/protoreflect"

// FieldView describes one message field for admin schema introspection.
type FieldView struct {
	Name     string `json:"name"`
	Number   int32  `json:"number"`
	Type     string `json:"type"`
	Repeated bool   `json:"repeated"`
	TypeRef  string `json:"typeRef,omitempty"`
}

// TypeView describes a message type for GET /admin/schema/{type}.
type TypeView struct {
	Name   string      `json:"name"`
	Kind   string      `json:"kind"` // "message" or "enum"
	Fields []FieldView `json:"fields,omitempty"`
	Values []string    `json:"values,omitempty"` // enum value names
}

// SchemaOf renders the admin-facing JSON description of a type: its
// fields, labels, and nested type references. Mirrors the simplified
// proto-kind-to-JSON-type mapping used for descriptor introspection
// elsewhere in this lineage, scoped to what the admin surface needs
// rather than a full JSON Schema document.
func (d *Descriptor) SchemaOf(typeName string) (*TypeView, error) {
	desc, ok := d.types[stripLeadingDot(typeName)]
	if !ok {
		return nil, ErrNotFound("type not found: " + typeName)
	}
	switch t := desc.(type) {
	case protoreflect.MessageDescriptor:
		return describeMessage(t), nil
	case protoreflect.EnumDescriptor:
		return describeEnum(t), nil
	}
	return nil, ErrNotFound("type not found: " + typeName)
}

func describeMessage(md protoreflect.MessageDescriptor) *TypeView {
	tv := &TypeView{Name: string(md.FullName()), Kind: "message"}
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		fv := FieldView{
			Name:     string(f.Name()),
			Number:   int32(f.Number()),
			Type:     kindName(f.Kind()),
			Repeated: f.Cardinality() == protoreflect.Repeated,
		}
		if f.Kind() == protoreflect.MessageKind || f.Kind() == protoreflect.GroupKind {
			fv.TypeRef = stripLeadingDot(string(f.Message().FullName()))
		}
		if f.Kind() == protoreflect.EnumKind {
			fv.TypeRef = stripLeadingDot(string(f.Enum().FullName()))
		}
		tv.Fields = append(tv.Fields, fv)
	}
	return tv
}

func describeEnum(ed protoreflect.EnumDescriptor) *TypeView {
	tv := &TypeView{Name: string(ed.FullName()), Kind: "enum"}
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		tv.Values = append(tv.Values, string(values.Get(i).Name()))
	}
	return tv
}

func kindName(k protoreflect.Kind) string {
	switch k {
	case protoreflect.DoubleKind, protoreflect.FloatKind:
		return "number"
	case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Uint32Kind,
		protoreflect.Uint64Kind, protoreflect.Sint32Kind, protoreflect.Sint64Kind,
		protoreflect.Fixed32Kind, protoreflect.Fixed64Kind,
		protoreflect.Sfixed32Kind, protoreflect.Sfixed64Kind:
		return "integer"
	case protoreflect.BoolKind:
		return "boolean"
	case protoreflect.StringKind:
		return "string"
	case protoreflect.BytesKind:
		return "bytes"
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return "object"
	case protoreflect.EnumKind:
		return "enum"
	default:
		return "unknown"
	}
}
