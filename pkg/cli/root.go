// Package cli implements wishmock's command-line entry points: serve
// (start the gateway, admin API, and world registry) and version.
//
// Grounded on this codebase's pkg/cli/root.go rootCmd/Execute shape,
// trimmed to the two subcommands a mock server needs instead of the
// full mock-management CLI that server exposes.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version, Commit, and BuildDate are injected at build time via
// -ldflags, same as this codebase's main package does.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "wishmock",
	Short: "wishmock serves mock responses for protobuf RPC services",
	Long: `wishmock loads .proto service definitions and YAML/JSON rule files,
then serves programmable mock responses over native gRPC, gRPC-Web, and
Connect RPC, picking a response by matching request metadata and body
against the loaded rules.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
