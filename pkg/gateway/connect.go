package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wishmock/wishmock/pkg/metrics"
	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/schema"
	"github.com/wishmock/wishmock/pkg/stream"
	"github.com/wishmock/wishmock/pkg/value"
	"github.com/wishmock/wishmock/pkg/world"
)

// dialectKind distinguishes the two HTTP-level dialects; native gRPC has
// its own transport in grpc.go.
type dialectKind int

const (
	dialectConnect dialectKind = iota
	dialectGRPCWeb
)

// HTTPHandler serves Connect (JSON & proto) and gRPC-Web (binary, base64,
// JSON) over one HTTP path per method, `/{package.Service}/{Method}`.
//
// This is a surface this codebase's lineage never implemented (its gRPC
// server is native-gRPC only); the framing here follows the wire
// description this repository documents for the two dialects rather
// than any generated client library, since no Connect or gRPC-Web
// package appears anywhere in the available reference material.
type HTTPHandler struct {
	Registry *world.Registry
	Log      *slog.Logger
	CORS     CORSConfig
}

func (h *HTTPHandler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.New(slog.DiscardHandler)
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.CORS.applyCORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dialect, jsonTyped, base64Framed := classify(r)
	protocolLabel := "connect"
	if dialect == dialectGRPCWeb {
		protocolLabel = "grpc_web"
	}
	if vec, err := metrics.RequestsTotal.WithLabels(protocolLabel); err == nil {
		_ = vec.Inc()
	}

	fqmn := strings.TrimPrefix(r.URL.Path, "/")
	wd := h.Registry.Current()
	if wd == nil {
		h.recordError(protocolLabel, Internal)
		h.writeError(w, dialect, jsonTyped, base64Framed, &Error{Kind: Internal, Message: "server has no loaded schema"})
		return
	}
	method, merr := wd.Descriptor.LookupMethod(fqmn)
	if merr != nil {
		h.recordError(protocolLabel, MethodUnknown)
		h.writeError(w, dialect, jsonTyped, base64Framed, &Error{Kind: MethodUnknown, Message: "method not found: " + fqmn})
		return
	}

	reqVal, derr := h.decodeBody(wd.Descriptor, r, method, dialect, jsonTyped, base64Framed)
	if derr != nil {
		h.recordError(protocolLabel, DecodeError)
		h.writeError(w, dialect, jsonTyped, base64Framed, &Error{Kind: DecodeError, Message: derr.Error()})
		return
	}

	md := flattenHeaders(r.Header)
	cand, gerr := resolve(wd, method, md, reqVal, nil)
	if gerr != nil {
		h.recordError(protocolLabel, gerr.Kind)
		h.writeError(w, dialect, jsonTyped, base64Framed, gerr)
		return
	}

	if err := applyDelay(r.Context(), cand.Option.DelayMS); err != nil {
		h.writeError(w, dialect, jsonTyped, base64Framed, &Error{Kind: Cancelled, Message: err.Error()})
		return
	}

	if method.ResponseStream {
		h.writeStream(w, r, wd.Descriptor, method, cand, dialect, jsonTyped, base64Framed)
		return
	}
	h.writeUnary(w, wd.Descriptor, method, cand, dialect, jsonTyped, base64Framed)
}

func (h *HTTPHandler) recordError(protocolLabel string, kind Kind) {
	if vec, err := metrics.RequestErrorsTotal.WithLabels(protocolLabel, string(kind)); err == nil {
		_ = vec.Inc()
	}
}

// classify determines the dialect, whether the payload codec is JSON
// (vs proto wire bytes), and whether gRPC-Web framing is base64-encoded
// ("-text" variants), from the request's Content-Type.
func classify(r *http.Request) (dialect dialectKind, jsonTyped bool, base64Framed bool) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/grpc-web-text"):
		return dialectGRPCWeb, strings.Contains(ct, "+json"), true
	case strings.HasPrefix(ct, "application/grpc-web"):
		return dialectGRPCWeb, strings.Contains(ct, "+json"), false
	case ct == "application/proto" || ct == "application/protobuf":
		return dialectConnect, false, false
	default:
		return dialectConnect, true, false
	}
}

func flattenHeaders(hdr http.Header) map[string]string {
	if len(hdr) == 0 {
		return nil
	}
	out := make(map[string]string, len(hdr))
	for k, vs := range hdr {
		if len(vs) == 0 {
			continue
		}
		out[strings.ToLower(k)] = vs[0]
	}
	return out
}

func (h *HTTPHandler) decodeBody(d *schema.Descriptor, r *http.Request, method *schema.MethodSpec, dialect dialectKind, jsonTyped, base64Framed bool) (value.Value, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return value.Null(), err
	}
	if dialect == dialectConnect {
		if jsonTyped {
			_, v, err := d.DecodeJSON(method.RequestType, raw)
			return v, err
		}
		_, v, err := d.DecodeWire(method.RequestType, raw)
		return v, err
	}

	if base64Framed {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return value.Null(), err
		}
		raw = decoded
	}
	payload, _, err := readLPMFrame(raw)
	if err != nil {
		return value.Null(), err
	}
	if jsonTyped {
		_, v, err := d.DecodeJSON(method.RequestType, payload)
		return v, err
	}
	_, v, err := d.DecodeWire(method.RequestType, payload)
	return v, err
}

func (h *HTTPHandler) writeUnary(w http.ResponseWriter, d *schema.Descriptor, method *schema.MethodSpec, cand rules.Candidate, dialect dialectKind, jsonTyped, base64Framed bool) {
	payload, err := h.encodeBody(d, method.ResponseType, cand.Option.Body, jsonTyped)
	if err != nil {
		h.writeError(w, dialect, jsonTyped, base64Framed, &Error{Kind: EncodeError, Message: err.Error()})
		return
	}

	if dialect == dialectConnect {
		w.Header().Set("Content-Type", contentTypeFor(dialect, jsonTyped))
		for k, v := range cand.Option.Trailers {
			w.Header().Set("Trailer-"+k, fmt.Sprintf("%v", v))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(dialect, jsonTyped))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frameLPM(0, payload, base64Framed))
	_, _ = w.Write(frameLPM(0x80, grpcWebTrailerPayload(0, "", cand.Option.Trailers), base64Framed))
}

func (h *HTTPHandler) writeStream(w http.ResponseWriter, r *http.Request, d *schema.Descriptor, method *schema.MethodSpec, cand rules.Candidate, dialect dialectKind, jsonTyped, base64Framed bool) {
	w.Header().Set("Content-Type", contentTypeFor(dialect, jsonTyped))
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	plan := stream.Plan{DelayMS: cand.Option.EffectiveStreamDelayMS(), Loop: cand.Option.StreamLoop, RandomOrder: cand.Option.StreamRandomOrder}
	if cand.Option.IsStreaming() {
		plan.Items = cand.Option.StreamItems
	} else {
		plan.Items = []map[string]any{cand.Option.Body}
	}

	sendErr := stream.Emit(r.Context(), plan, func(item map[string]any) error {
		payload, err := h.encodeBody(d, method.ResponseType, item, jsonTyped)
		if err != nil {
			return err
		}
		if dialect == dialectConnect {
			if jsonTyped {
				_, _ = w.Write(payload)
				_, _ = w.Write([]byte("\n"))
			} else {
				_, _ = w.Write(frameLPM(0, payload, false))
			}
		} else {
			_, _ = w.Write(frameLPM(0, payload, base64Framed))
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	if dialect == dialectConnect {
		_, _ = w.Write(connectEndStreamFrame(sendErr, cand.Option.Trailers))
	} else {
		code := 0
		msg := ""
		if sendErr != nil {
			code = int(grpcStatusCode(EncodeError))
			msg = sendErr.Error()
		}
		_, _ = w.Write(frameLPM(0x80, grpcWebTrailerPayload(code, msg, cand.Option.Trailers), base64Framed))
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func (h *HTTPHandler) encodeBody(d *schema.Descriptor, typeName string, body map[string]any, jsonTyped bool) ([]byte, error) {
	if jsonTyped {
		return d.EncodeJSON(typeName, body, false)
	}
	return d.EncodeWire(typeName, body)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, dialect dialectKind, jsonTyped, base64Framed bool, e *Error) {
	code := connectCode(e.Kind)

	if dialect == dialectConnect {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(connectHTTPStatus(code))
		_ = json.NewEncoder(w).Encode(connectErrorEnvelope(code, e))
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(dialect, jsonTyped))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frameLPM(0x80, grpcWebTrailerPayload(int(grpcStatusCode(e.Kind)), e.Error(), nil), base64Framed))
}

func connectErrorEnvelope(code string, e *Error) map[string]any {
	env := map[string]any{"code": code, "message": e.Error()}
	if len(e.Violations) > 0 {
		violations := make([]map[string]any, 0, len(e.Violations))
		for _, v := range e.Violations {
			violations = append(violations, map[string]any{
				"field_path":    v.FieldPath,
				"constraint_id": v.ConstraintID,
				"message":       v.Message,
			})
		}
		env["details"] = violations
	}
	return env
}

func connectEndStreamFrame(sendErr error, trailers map[string]any) []byte {
	body := map[string]any{}
	if len(trailers) > 0 {
		body["metadata"] = trailers
	}
	if sendErr != nil {
		body["error"] = connectErrorEnvelope(connectCode(EncodeError), &Error{Kind: EncodeError, Message: sendErr.Error()})
	}
	raw, _ := json.Marshal(body)
	return frameLPM(0x02, raw, false)
}

func contentTypeFor(dialect dialectKind, jsonTyped bool) string {
	if dialect == dialectConnect {
		if jsonTyped {
			return "application/json"
		}
		return "application/proto"
	}
	if jsonTyped {
		return "application/grpc-web+json"
	}
	return "application/grpc-web+proto"
}

// readLPMFrame parses one gRPC length-prefixed message frame: a 1-byte
// flags field followed by a 4-byte big-endian length and that many
// payload bytes.
func readLPMFrame(buf []byte) (payload []byte, rest []byte, err error) {
	if len(buf) < 5 {
		return nil, nil, fmt.Errorf("frame too short: %d bytes", len(buf))
	}
	n := binary.BigEndian.Uint32(buf[1:5])
	if uint32(len(buf)-5) < n {
		return nil, nil, fmt.Errorf("frame length %d exceeds buffer", n)
	}
	return buf[5 : 5+n], buf[5+n:], nil
}

// frameLPM builds one length-prefixed message frame, optionally
// base64-encoding the whole frame for the "-text" gRPC-Web variants.
func frameLPM(flags byte, payload []byte, base64Framed bool) []byte {
	var buf bytes.Buffer
	buf.WriteByte(flags)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])
	buf.Write(payload)
	if !base64Framed {
		return buf.Bytes()
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return []byte(encoded)
}

// grpcWebTrailerPayload renders the gRPC-Web trailer block: an
// HTTP/1.1-header-style text block carrying grpc-status, grpc-message,
// and any rule-authored trailers.
func grpcWebTrailerPayload(code int, message string, trailers map[string]any) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "grpc-status: %d\r\n", code)
	if message != "" {
		fmt.Fprintf(&buf, "grpc-message: %s\r\n", message)
	}
	for k, v := range trailers {
		fmt.Fprintf(&buf, "%s: %v\r\n", k, v)
	}
	return buf.Bytes()
}
