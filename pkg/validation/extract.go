package validation

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/wishmock/wishmock/pkg/schema"
)

// Registry holds one IR per message type, built from a single
// schema.Descriptor snapshot, plus the validation configuration in
// force. It is immutable once built and lives inside world.World.
type Registry struct {
	irs    map[string]*IR
	nested map[string]map[string]string            // typeName -> fieldName -> nested message typeName
	enums  map[string]map[string]protoreflect.EnumDescriptor // typeName -> fieldName -> enum descriptor
	Source Dialect
	Mode   Mode
	CEL    CELMessageMode
}

// Build walks every message type in d and extracts its IR.
// Wishmock's single bundled annotation schema serves as the carrier for
// both dialect names (see pkg/schema/bundled.go); "auto" therefore
// always resolves to the same extractor, but the knob is honored so a
// future second extractor can be added without changing callers.
func Build(d *schema.Descriptor, source Dialect, mode Mode, cel CELMessageMode) *Registry {
	r := &Registry{
		irs:    make(map[string]*IR),
		nested: make(map[string]map[string]string),
		enums:  make(map[string]map[string]protoreflect.EnumDescriptor),
		Source: source, Mode: mode, CEL: cel,
	}
	constraintsExt := d.ConstraintsExtension()
	messageCelExt := d.MessageCelExtension()

	for _, md := range d.AllMessageTypes() {
		typeName := stripDot(string(md.FullName()))
		ir := &IR{TypeName: typeName}
		if constraintsExt != nil {
			extractFieldConstraints(md, constraintsExt, ir)
		}
		if messageCelExt != nil && (cel == CELMessageExperimental || source != DialectPGV) {
			extractMessageConstraints(md, messageCelExt, ir)
		}
		r.irs[typeName] = ir
		r.indexStructure(typeName, md)
	}
	return r
}

// indexStructure records, per message type, which fields point at a
// nested message type (so evaluation can recurse) and which point at
// an enum (so enum_defined_only can check membership).
func (r *Registry) indexStructure(typeName string, md protoreflect.MessageDescriptor) {
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		switch fd.Kind() {
		case protoreflect.MessageKind, protoreflect.GroupKind:
			if r.nested[typeName] == nil {
				r.nested[typeName] = make(map[string]string)
			}
			r.nested[typeName][string(fd.Name())] = stripDot(string(fd.Message().FullName()))
		case protoreflect.EnumKind:
			if r.enums[typeName] == nil {
				r.enums[typeName] = make(map[string]protoreflect.EnumDescriptor)
			}
			r.enums[typeName][string(fd.Name())] = fd.Enum()
		}
	}
}

func stripDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

// Lookup returns the IR for a message type, or nil if the type carries
// no constraints (not an error: most messages have none).
func (r *Registry) Lookup(typeName string) *IR {
	return r.irs[stripDot(typeName)]
}

func extractFieldConstraints(md protoreflect.MessageDescriptor, ext protoreflect.ExtensionDescriptor, ir *IR) {
	extType := dynamicpb.NewExtensionType(ext)
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		opts, ok := fd.Options().(proto.Message)
		if !ok || opts == nil {
			continue
		}
		if !proto.HasExtension(opts, extType) {
			continue
		}
		raw := proto.GetExtension(opts, extType)
		cmsg, ok := raw.(proto.Message)
		if !ok {
			continue
		}
		appendFieldConstraints(ir, string(fd.Name()), cmsg.ProtoReflect())
	}
}

// fieldConstraintField numbers, matching pkg/schema/bundled.go's
// FieldConstraints message.
const (
	fcRequired  = 1
	fcMinLen    = 2
	fcMaxLen    = 3
	fcGTE       = 4
	fcLTE       = 5
	fcGT        = 6
	fcLT        = 7
	fcConst     = 8
	fcPattern   = 9
	fcFormat    = 10
	fcIn        = 11
	fcNotIn     = 12
	fcEnumOnly  = 13
)

func appendFieldConstraints(ir *IR, fieldPath string, m protoreflect.Message) {
	fields := m.Descriptor().Fields()
	get := func(num protoreflect.FieldNumber) (protoreflect.FieldDescriptor, protoreflect.Value, bool) {
		fd := fields.ByNumber(num)
		if fd == nil || !m.Has(fd) {
			return nil, protoreflect.Value{}, false
		}
		return fd, m.Get(fd), true
	}

	if _, v, ok := get(fcRequired); ok && v.Bool() {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindRequired})
	}
	if _, v, ok := get(fcMinLen); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindMinLen, Params: map[string]any{"value": v.Uint()}})
	}
	if _, v, ok := get(fcMaxLen); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindMaxLen, Params: map[string]any{"value": v.Uint()}})
	}
	if _, v, ok := get(fcGTE); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindGTE, Params: map[string]any{"value": v.Float()}})
	}
	if _, v, ok := get(fcLTE); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindLTE, Params: map[string]any{"value": v.Float()}})
	}
	if _, v, ok := get(fcGT); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindGT, Params: map[string]any{"value": v.Float()}})
	}
	if _, v, ok := get(fcLT); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindLT, Params: map[string]any{"value": v.Float()}})
	}
	if _, v, ok := get(fcConst); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindConst, Params: map[string]any{"value": v.String()}})
	}
	if _, v, ok := get(fcPattern); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindPattern, Params: map[string]any{"value": v.String()}})
	}
	if _, v, ok := get(fcFormat); ok {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: ConstraintKind(v.String()), Params: nil})
	}
	if fd, _, ok := get(fcIn); ok {
		list := m.Get(fd).List()
		values := make([]string, list.Len())
		for i := 0; i < list.Len(); i++ {
			values[i] = list.Get(i).String()
		}
		if len(values) > 0 {
			ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindIn, Params: map[string]any{"values": values}})
		}
	}
	if fd, _, ok := get(fcNotIn); ok {
		list := m.Get(fd).List()
		values := make([]string, list.Len())
		for i := 0; i < list.Len(); i++ {
			values[i] = list.Get(i).String()
		}
		if len(values) > 0 {
			ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindNotIn, Params: map[string]any{"values": values}})
		}
	}
	if _, v, ok := get(fcEnumOnly); ok && v.Bool() {
		ir.FieldConstraints = append(ir.FieldConstraints, FieldConstraint{FieldPath: fieldPath, Kind: KindEnumDefinedOnly})
	}
}

func extractMessageConstraints(md protoreflect.MessageDescriptor, ext protoreflect.ExtensionDescriptor, ir *IR) {
	extType := dynamicpb.NewExtensionType(ext)
	opts, ok := md.Options().(proto.Message)
	if !ok || opts == nil || !proto.HasExtension(opts, extType) {
		return
	}
	raw := proto.GetExtension(opts, extType)
	list, ok := raw.([]string)
	if !ok {
		return
	}
	for _, expr := range list {
		ir.MessageConstraints = append(ir.MessageConstraints, MessageConstraint{CELExpression: expr})
	}
}
