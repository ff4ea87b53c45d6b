// Package gateway is the Protocol Gateway: it serves native gRPC,
// gRPC-Web, and Connect RPC over the same descriptor-driven dispatch
// logic, decoding each dialect's wire format into the shared value.Value
// tree, running it through validation and matching once, and encoding
// the chosen candidate back out in the caller's dialect.
//
// Grounded on this codebase's pkg/grpc/server.go: native gRPC is served
// entirely through an UnknownServiceHandler that dispatches by parsed
// method path using descriptor reflection (no generated stubs, and no
// grpc.ServiceDesc is registered), with status/codes construction at the
// single error-mapping boundary. The Connect and
// gRPC-Web dialects are new surfaces this codebase's lineage does not
// have; their framing is implemented from the wire-level description in
// this package's callers rather than any generated client library.
package gateway

import (
	"context"
	"time"

	"github.com/wishmock/wishmock/internal/matching"
	"github.com/wishmock/wishmock/pkg/metrics"
	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/schema"
	"github.com/wishmock/wishmock/pkg/validation"
	"github.com/wishmock/wishmock/pkg/value"
	"github.com/wishmock/wishmock/pkg/world"
)

// resolve runs validation (if enabled in this snapshot) then matching
// for one decoded request, recording metrics and event-ring entries
// along the way. It is shared by every transport's unary and
// first-message streaming path.
func resolve(w *world.World, method *schema.MethodSpec, md map[string]string, req value.Value, cel validation.CELEvaluator) (rules.Candidate, *Error) {
	if w.Validators != nil {
		metrics.ValidationChecksTotal.Inc()
		result := w.Validators.Validate(method.RequestType, req, cel)
		if !result.OK {
			metrics.ValidationFailuresTotal.Inc()
			for _, fe := range result.Errors {
				if vec, err := metrics.ValidationFailuresByType.WithLabels(fe.ConstraintID); err == nil {
					_ = vec.Inc()
				}
				metrics.RecordValidationEvent(method.RequestType, "fail", fe.ConstraintID, fe.Message)
			}
			return rules.Candidate{}, &Error{Kind: ValidationFailed, Violations: result.Errors}
		}
		metrics.RecordValidationEvent(method.RequestType, "ok", "", "")
	}

	metrics.MatchAttemptsTotal.Inc()
	cand, ok := matching.Select(w.Rules, method.RuleKey, md, req)
	if !ok {
		metrics.MatchMissesTotal.Inc()
		return rules.Candidate{}, &Error{Kind: RuleNotMatched, Message: "no rule matched " + method.RuleKey}
	}
	metrics.MatchesTotal.Inc()
	if vec, err := metrics.MatchesByRule.WithLabels(method.RuleKey); err == nil {
		_ = vec.Inc()
	}
	return cand, nil
}

// applyDelay blocks for the candidate's configured delay, honouring
// ctx cancellation.
func applyDelay(ctx context.Context, delayMS int) error {
	if delayMS <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(delayMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
