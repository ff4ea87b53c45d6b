// Command wishmock serves mock gRPC, gRPC-Web, and Connect RPC
// responses from .proto definitions and YAML/JSON rule files.
package main

import (
	"github.com/wishmock/wishmock/pkg/cli"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
