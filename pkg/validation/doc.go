// Package validation extracts field- and message-level constraints from
// protobuf descriptor options into the dialect-neutral IR described in
// SPEC_FULL.md §3/§4.C, then evaluates that IR against decoded request
// values.
//
// Source selection (auto/pgv/protovalidate/buf) only governs the
// extractor; the evaluator in eval.go never branches on dialect.
package validation
