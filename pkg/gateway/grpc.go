package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wishmock/wishmock/pkg/metrics"
	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/schema"
	"github.com/wishmock/wishmock/pkg/stream"
	"github.com/wishmock/wishmock/pkg/value"
	"github.com/wishmock/wishmock/pkg/world"
)

// GRPCHandler serves native gRPC entirely through grpc.Server's
// UnknownServiceHandler: rather than re-registering a grpc.ServiceDesc
// per reload (which grpc.Server does not support after Serve has
// started), every call - unary or streaming - is routed through one
// generic handler that resolves the method from the current World by
// parsed path.
//
// Grounded on this codebase's handleStream/handleStreamMethod fallback
// path, generalised to be the ONLY path (not just the fallback for
// services registerServices did not pre-register), so a rule or proto
// reload never requires restarting the gRPC listener.
type GRPCHandler struct {
	Registry *world.Registry
	Log      *slog.Logger
}

// NewGRPCServer builds a *grpc.Server wired entirely through h.
func (h *GRPCHandler) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.UnknownServiceHandler(h.handle))
	return grpc.NewServer(opts...)
}

func (h *GRPCHandler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.New(slog.DiscardHandler)
}

func (h *GRPCHandler) handle(srv any, stm grpc.ServerStream) error {
	fullMethod, ok := grpc.MethodFromServerStream(stm)
	if !ok {
		return status.Error(codes.Internal, "cannot determine method from stream")
	}
	parts := strings.SplitN(strings.TrimPrefix(fullMethod, "/"), "/", 2)
	if len(parts) != 2 {
		return status.Errorf(codes.Unimplemented, "invalid method path: %s", fullMethod)
	}
	fqmn := parts[0] + "/" + parts[1]

	if vec, err := metrics.RequestsTotal.WithLabels("grpc"); err == nil {
		_ = vec.Inc()
	}

	w := h.Registry.Current()
	if w == nil {
		return status.Error(codes.Unavailable, "server has no loaded schema")
	}
	method, merr := w.Descriptor.LookupMethod(fqmn)
	if merr != nil {
		h.recordError("grpc", MethodUnknown)
		return status.Errorf(codes.NotFound, "method not found: %s", fqmn)
	}

	md, _ := metadata.FromIncomingContext(stm.Context())
	flatMD := flattenMetadata(md)

	reqVal, derr := h.decodeRequest(w.Descriptor, stm, method)
	if derr != nil {
		h.recordError("grpc", DecodeError)
		return status.Errorf(codes.InvalidArgument, "%v", derr)
	}

	cand, gerr := resolve(w, method, flatMD, reqVal, nil)
	if gerr != nil {
		h.recordError("grpc", gerr.Kind)
		return h.toStatus(gerr).Err()
	}

	if err := applyDelay(stm.Context(), cand.Option.DelayMS); err != nil {
		return status.FromContextError(err).Err()
	}
	if len(cand.Option.Trailers) > 0 {
		stm.SetTrailer(trailerMD(cand.Option.Trailers))
	}

	if method.ResponseStream {
		return h.sendStream(stm, w.Descriptor, method, cand)
	}
	return h.sendUnary(stm, w.Descriptor, method, cand)
}

// decodeRequest reads the request envelope: a single message for a
// non-client-streaming method, or every message drained to end-of-stream
// for a client-streaming one, per this codebase's documented choice not
// to give client streaming meaningful per-item semantics — the last
// message received stands in for the call's request value.
func (h *GRPCHandler) decodeRequest(d *schema.Descriptor, stm grpc.ServerStream, method *schema.MethodSpec) (value.Value, error) {
	var last value.Value = value.Null()
	for {
		msg, err := d.NewRequestMessage(method.RequestType)
		if err != nil {
			return value.Null(), err
		}
		if err := stm.RecvMsg(msg.Interface()); err != nil {
			if err == io.EOF {
				break
			}
			return value.Null(), err
		}
		last = schema.MessageToValue(msg)
		if !method.RequestStream {
			break
		}
	}
	return last, nil
}

func (h *GRPCHandler) sendUnary(stm grpc.ServerStream, d *schema.Descriptor, method *schema.MethodSpec, cand rules.Candidate) error {
	msg, err := d.BuildMessage(method.ResponseType, cand.Option.Body)
	if err != nil {
		h.recordError("grpc", EncodeError)
		return status.Errorf(codes.Internal, "encode response: %v", err)
	}
	if err := stm.SendMsg(msg.Interface()); err != nil {
		return status.Errorf(codes.Internal, "send response: %v", err)
	}
	return nil
}

func (h *GRPCHandler) sendStream(stm grpc.ServerStream, d *schema.Descriptor, method *schema.MethodSpec, cand rules.Candidate) error {
	if !cand.Option.IsStreaming() {
		return h.sendUnary(stm, d, method, cand)
	}
	plan := stream.Plan{
		Items:       cand.Option.StreamItems,
		DelayMS:     cand.Option.EffectiveStreamDelayMS(),
		Loop:        cand.Option.StreamLoop,
		RandomOrder: cand.Option.StreamRandomOrder,
	}
	return stream.Emit(stm.Context(), plan, func(item map[string]any) error {
		msg, err := d.BuildMessage(method.ResponseType, item)
		if err != nil {
			return status.Errorf(codes.Internal, "encode stream item: %v", err)
		}
		return stm.SendMsg(msg.Interface())
	})
}

func (h *GRPCHandler) toStatus(e *Error) *status.Status {
	st := status.New(grpcStatusCode(e.Kind), e.Error())
	if e.Kind == ValidationFailed && len(e.Violations) > 0 {
		br := &errdetails.BadRequest{}
		for _, v := range e.Violations {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.FieldPath,
				Description: fmt.Sprintf("%s (%s)", v.Message, v.ConstraintID),
			})
		}
		if withDetails, err := st.WithDetails(br); err == nil {
			st = withDetails
		}
	}
	return st
}

func (h *GRPCHandler) recordError(protocolLabel string, kind Kind) {
	if vec, err := metrics.RequestErrorsTotal.WithLabels(protocolLabel, string(kind)); err == nil {
		_ = vec.Inc()
	}
}

// flattenMetadata lowercases keys and keeps the first value per key, the
// shape the Matcher and Validation event log expect.
func flattenMetadata(md metadata.MD) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, vs := range md {
		if len(vs) == 0 {
			continue
		}
		out[strings.ToLower(k)] = vs[0]
	}
	return out
}

// trailerMD renders a rule's {string|number|bool} trailer map as gRPC
// metadata, stringifying non-string values.
func trailerMD(trailers map[string]any) metadata.MD {
	pairs := make([]string, 0, len(trailers)*2)
	for k, v := range trailers {
		pairs = append(pairs, k, fmt.Sprintf("%v", v))
	}
	return metadata.Pairs(pairs...)
}
