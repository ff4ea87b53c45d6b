package schema

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bufbuild/protocompile"
)

// OptionsProtoPath is the synthetic import path user .proto files use to
// pull in Wishmock's field/message constraint annotations:
//
//	import "wishmock/validate.proto";
//	message Greeting {
//	  string name = 1 [(wishmock.validate.constraints).min_len = 3];
//	}
//
// Neither protoc-gen-validate nor protovalidate's own .proto files ship
// in this module (they aren't vendored dependencies anywhere in this
// codebase's lineage, and hand-stubbing their wire format would be
// fabricating a dependency we don't actually have). Wishmock defines its
// own small constraints schema instead and treats it as the common
// target both the "pgv" and "protovalidate" dialect names configure
// (see pkg/validation for the dialect-selection knob); see DESIGN.md for
// the full rationale.
const OptionsProtoPath = "wishmock/validate.proto"

const optionsProtoSource = `syntax = "proto3";

package wishmock.validate;

import "google/protobuf/descriptor.proto";

message FieldConstraints {
  optional bool required = 1;
  optional uint64 min_len = 2;
  optional uint64 max_len = 3;
  optional double gte = 4;
  optional double lte = 5;
  optional double gt = 6;
  optional double lt = 7;
  optional string const_value = 8;
  optional string pattern = 9;
  optional string format = 10; // email|uuid|hostname|ip
  repeated string in = 11;
  repeated string not_in = 12;
  optional bool enum_defined_only = 13;
}

extend google.protobuf.FieldOptions {
  FieldConstraints constraints = 50101;
}

extend google.protobuf.MessageOptions {
  repeated string message_cel = 50102;
}
`

// fileSystemResolver looks up an import path against a list of roots in
// order, then falls back to the bundled constraints schema. Grounded on
// the composite filesystem resolver this codebase's lineage uses to
// feed protocompile.Compiler: a small resolver for "our" files,
// composed with protocompile.WithStandardImports for the well-known
// types.
type fileSystemResolver struct {
	roots []string
}

func (r *fileSystemResolver) FindFileByPath(path string) (protocompile.SearchResult, error) {
	if path == OptionsProtoPath {
		return protocompile.SearchResult{Source: strings.NewReader(optionsProtoSource)}, nil
	}
	for _, root := range r.roots {
		full := filepath.Join(root, path)
		data, err := os.ReadFile(full)
		if err == nil {
			return protocompile.SearchResult{Source: strings.NewReader(string(data))}, nil
		}
	}
	return protocompile.SearchResult{}, os.ErrNotExist
}
