package gateway

import (
	"google.golang.org/grpc/codes"

	"github.com/wishmock/wishmock/pkg/validation"
)

// Kind is the fixed error taxonomy every dialect's errors are mapped
// from.
type Kind string

const (
	KindMethodUnknown    Kind = "method_unknown"
	KindDecodeError      Kind = "decode_error"
	KindValidationFailed Kind = "validation_failed"
	KindRuleNotMatched   Kind = "rule_not_matched"
	KindEncodeError      Kind = "encode_error"
	KindInternal         Kind = "internal"
	KindCancelled        Kind = "cancelled"
)

// Aliases matching the taxonomy names used in SPEC_FULL.md §7, kept
// short for call sites.
const (
	MethodUnknown    = KindMethodUnknown
	DecodeError      = KindDecodeError
	ValidationFailed = KindValidationFailed
	RuleNotMatched   = KindRuleNotMatched
	EncodeError      = KindEncodeError
	Internal         = KindInternal
	Cancelled        = KindCancelled
)

// Error is the single error shape every transport maps to its own wire
// representation.
type Error struct {
	Kind       Kind
	Message    string
	Violations []validation.FieldError
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// connectCode is the Connect protocol's lower_snake_case error code.
func connectCode(k Kind) string {
	switch k {
	case RuleNotMatched:
		return "unimplemented"
	case ValidationFailed, DecodeError:
		return "invalid_argument"
	case MethodUnknown:
		return "not_found"
	case Cancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// grpcStatusCode is the native gRPC status.Code for the same taxonomy.
func grpcStatusCode(k Kind) codes.Code {
	switch k {
	case RuleNotMatched:
		return codes.Unimplemented
	case ValidationFailed, DecodeError:
		return codes.InvalidArgument
	case MethodUnknown:
		return codes.NotFound
	case Cancelled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// connectHTTPStatus maps a Connect error code to the HTTP status Connect
// expects the unary/streaming error envelope to carry.
func connectHTTPStatus(code string) int {
	switch code {
	case "invalid_argument", "failed_precondition", "out_of_range":
		return 400
	case "unauthenticated":
		return 401
	case "permission_denied":
		return 403
	case "not_found":
		return 404
	case "aborted", "already_exists":
		return 409
	case "resource_exhausted":
		return 429
	case "cancelled":
		return 499
	case "unimplemented":
		return 501
	case "unavailable":
		return 503
	case "deadline_exceeded":
		return 504
	default:
		return 500
	}
}
