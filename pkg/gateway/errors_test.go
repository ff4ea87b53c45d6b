package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestErrorMessageFallsBackToKind(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: RuleNotMatched}
	assert.Equal(t, "rule_not_matched", e.Error())

	e2 := &Error{Kind: RuleNotMatched, Message: "no rule matched foo.bar"}
	assert.Equal(t, "no rule matched foo.bar", e2.Error())
}

func TestConnectCodeMapping(t *testing.T) {
	t.Parallel()

	cases := map[Kind]string{
		RuleNotMatched:   "unimplemented",
		ValidationFailed: "invalid_argument",
		DecodeError:      "invalid_argument",
		MethodUnknown:    "not_found",
		Cancelled:        "cancelled",
		Internal:         "internal",
		EncodeError:      "internal",
	}
	for kind, want := range cases {
		assert.Equal(t, want, connectCode(kind), "kind=%s", kind)
	}
}

func TestGRPCStatusCodeMapping(t *testing.T) {
	t.Parallel()

	cases := map[Kind]codes.Code{
		RuleNotMatched:   codes.Unimplemented,
		ValidationFailed: codes.InvalidArgument,
		DecodeError:      codes.InvalidArgument,
		MethodUnknown:    codes.NotFound,
		Cancelled:        codes.Canceled,
		Internal:         codes.Internal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, grpcStatusCode(kind), "kind=%s", kind)
	}
}

func TestConnectHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"invalid_argument":    400,
		"failed_precondition": 400,
		"out_of_range":        400,
		"unauthenticated":     401,
		"permission_denied":   403,
		"not_found":           404,
		"aborted":             409,
		"already_exists":      409,
		"resource_exhausted":  429,
		"cancelled":           499,
		"unimplemented":       501,
		"unavailable":         503,
		"deadline_exceeded":   504,
		"internal":            500,
		"unknown_code":        500,
	}
	for code, want := range cases {
		assert.Equal(t, want, connectHTTPStatus(code), "code=%s", code)
	}
}
