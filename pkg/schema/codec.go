package schema

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/wishmock/wishmock/pkg/value"
)

// DecodeError signals that inbound bytes or JSON could not be parsed
// against the declared request type. It is never a server-side bug.
type DecodeError struct {
	TypeName string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.TypeName, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError signals that a rule-authored response body could not be
// encoded as the declared response type.
type EncodeError struct {
	TypeName string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.TypeName, e.Err)
}
func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeWire parses proto wire-format bytes into a dynamic message and
// its Value form. Unknown fields are tolerated (dynamicpb preserves them
// but they are simply absent from the Value tree).
func (d *Descriptor) DecodeWire(typeName string, wire []byte) (protoreflect.Message, value.Value, error) {
	md, err := d.MessageDescriptor(typeName)
	if err != nil {
		return nil, value.Null(), err
	}
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(wire, msg); err != nil {
		return nil, value.Null(), &DecodeError{TypeName: typeName, Err: err}
	}
	return msg, MessageToValue(msg), nil
}

// DecodeJSON parses JSON bytes into a dynamic message and its Value form.
func (d *Descriptor) DecodeJSON(typeName string, body []byte) (protoreflect.Message, value.Value, error) {
	md, err := d.MessageDescriptor(typeName)
	if err != nil {
		return nil, value.Null(), err
	}
	msg := dynamicpb.NewMessage(md)
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(body, msg); err != nil {
		return nil, value.Null(), &DecodeError{TypeName: typeName, Err: err}
	}
	return msg, MessageToValue(msg), nil
}

// EncodeWire renders a rule-authored body (a plain map[string]any tree,
// as parsed from YAML/JSON) as proto wire bytes of the declared response
// type, applying descriptor defaults for any field the body omits.
func (d *Descriptor) EncodeWire(typeName string, body map[string]any) ([]byte, error) {
	msg, err := d.bodyToMessage(typeName, body)
	if err != nil {
		return nil, err
	}
	out, err := proto.Marshal(msg)
	if err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	return out, nil
}

// EncodeJSON renders a rule-authored body as protojson bytes of the
// declared response type. enumsAsInts controls whether enum fields are
// rendered as their numeric value (native gRPC / gRPC-Web binary) or
// their name (JSON-typed Connect/gRPC-Web responses, when requested).
func (d *Descriptor) EncodeJSON(typeName string, body map[string]any, enumsAsInts bool) ([]byte, error) {
	msg, err := d.bodyToMessage(typeName, body)
	if err != nil {
		return nil, err
	}
	out, err := protojson.MarshalOptions{UseEnumNumbers: enumsAsInts, EmitUnpopulated: false}.Marshal(msg)
	if err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	return out, nil
}

// BuildMessage renders a rule-authored body as a dynamic message of the
// declared type, applying descriptor defaults for omitted fields. Unlike
// EncodeWire/EncodeJSON it returns the message itself rather than
// serialised bytes, for transports (native gRPC) whose codec expects a
// proto.Message value rather than a byte slice.
func (d *Descriptor) BuildMessage(typeName string, body map[string]any) (protoreflect.Message, error) {
	return d.bodyToMessage(typeName, body)
}

// NewRequestMessage allocates an empty dynamic message of typeName, for
// transports that decode directly into a message value (native gRPC's
// stream.RecvMsg) rather than through DecodeWire/DecodeJSON.
func (d *Descriptor) NewRequestMessage(typeName string) (protoreflect.Message, error) {
	md, err := d.MessageDescriptor(typeName)
	if err != nil {
		return nil, err
	}
	return dynamicpb.NewMessage(md), nil
}

func (d *Descriptor) bodyToMessage(typeName string, body map[string]any) (protoreflect.Message, error) {
	md, err := d.MessageDescriptor(typeName)
	if err != nil {
		return nil, err
	}
	msg := dynamicpb.NewMessage(md)
	raw, err := marshalJSONValue(body)
	if err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, msg); err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	return msg, nil
}

// MessageToValue converts a decoded dynamic message into the tagged-sum
// Value representation via a protojson round trip, so the matcher and
// validator never need descriptor-aware reflection of their own.
func MessageToValue(msg protoreflect.Message) value.Value {
	raw, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(msg.Interface())
	if err != nil {
		return value.Null()
	}
	tree, err := unmarshalJSONValue(raw)
	if err != nil {
		return value.Null()
	}
	return tree
}
