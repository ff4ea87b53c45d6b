// Package validation implements the validation engine: constraint
// extraction from descriptor options into a dialect-neutral
// intermediate representation, and evaluation of that IR against
// decoded request values.
//
// Grounded on the per-field constraint/evaluation shape used elsewhere
// in this codebase's lineage (FieldValidator / ValidateField), adapted
// from JSON-tree values to the protobuf-descriptor-aligned value.Value
// tree, and retargeted from OpenAPI/JSON-Schema constraint sources to
// protobuf field options.
package validation

// ConstraintKind enumerates the supported FieldConstraint kinds.
type ConstraintKind string

const (
	KindRequired        ConstraintKind = "required"
	KindMinLen          ConstraintKind = "min_len"
	KindMaxLen          ConstraintKind = "max_len"
	KindGTE             ConstraintKind = "gte"
	KindLTE             ConstraintKind = "lte"
	KindGT              ConstraintKind = "gt"
	KindLT              ConstraintKind = "lt"
	KindConst           ConstraintKind = "const"
	KindIn              ConstraintKind = "in"
	KindNotIn           ConstraintKind = "not_in"
	KindPattern         ConstraintKind = "pattern"
	KindEmail           ConstraintKind = "email"
	KindUUID            ConstraintKind = "uuid"
	KindHostname        ConstraintKind = "hostname"
	KindIP              ConstraintKind = "ip"
	KindEnumDefinedOnly ConstraintKind = "enum_defined_only"
	KindMessageCEL      ConstraintKind = "message_cel"
)

// FieldConstraint is one extracted, dialect-neutral rule for a single
// field of a message type.
type FieldConstraint struct {
	FieldPath string
	Kind      ConstraintKind
	Params    map[string]any
}

// MessageConstraint is a CEL expression evaluated against the whole
// message value.
type MessageConstraint struct {
	CELExpression string
}

// IR is the neutral form both the "pgv" and "protovalidate" dialects
// extract into; the evaluator never looks at dialect names again once
// an IR exists.
type IR struct {
	TypeName           string
	FieldConstraints    []FieldConstraint
	MessageConstraints []MessageConstraint
}

// Dialect selects which annotation style the extractor honors.
type Dialect string

const (
	DialectAuto         Dialect = "auto"
	DialectPGV          Dialect = "pgv"
	DialectProtovalidate Dialect = "protovalidate"
)

// NormalizeDialect applies the documented "buf" legacy alias.
func NormalizeDialect(s string) Dialect {
	switch Dialect(s) {
	case "buf":
		return DialectProtovalidate
	case DialectPGV, DialectProtovalidate, DialectAuto:
		return Dialect(s)
	default:
		return DialectAuto
	}
}

// Mode governs how many violations Validate reports.
type Mode string

const (
	ModePerMessage Mode = "per_message"
	ModeAggregate  Mode = "aggregate"
)

func NormalizeMode(s string) Mode {
	if Mode(s) == ModeAggregate {
		return ModeAggregate
	}
	return ModePerMessage
}

// CELMessageMode controls whether message-level CEL constraints are
// enforced outside of the protovalidate dialect.
type CELMessageMode string

const (
	CELMessageOff          CELMessageMode = "off"
	CELMessageExperimental CELMessageMode = "experimental"
)

func NormalizeCELMessageMode(s string) CELMessageMode {
	if CELMessageMode(s) == CELMessageExperimental {
		return CELMessageExperimental
	}
	return CELMessageOff
}
