// Package config loads Wishmock's server configuration from environment
// variables. No command-line flag overrides these values.
//
// Grounded on this codebase's internal/cliconfig/env.go: a flat struct
// populated by a single LoadEnv pass, one os.Getenv per field, ints and
// bools parsed defensively (a malformed value is ignored rather than
// aborting startup).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/wishmock/wishmock/pkg/logging"
	"github.com/wishmock/wishmock/pkg/validation"
)

// Environment variable names.
const (
	EnvConnectEnabled     = "CONNECT_ENABLED"
	EnvConnectPort        = "CONNECT_PORT"
	EnvConnectCORSEnabled = "CONNECT_CORS_ENABLED"
	EnvConnectCORSOrigins = "CONNECT_CORS_ORIGINS"

	EnvGRPCPort       = "GRPC_PORT"
	EnvGRPCTLSPort    = "GRPC_TLS_PORT"
	EnvGRPCTLSCert    = "GRPC_TLS_CERT_FILE"
	EnvGRPCTLSKey     = "GRPC_TLS_KEY_FILE"
	EnvGRPCMTLSEnable = "GRPC_MTLS_ENABLED"
	EnvGRPCMTLSCACert = "GRPC_MTLS_CA_FILE"

	EnvValidationEnabled   = "VALIDATION_ENABLED"
	EnvValidationSource    = "VALIDATION_SOURCE"
	EnvValidationMode      = "VALIDATION_MODE"
	EnvValidationCELMsg    = "VALIDATION_CEL_MESSAGE"
	EnvDebugValidation     = "DEBUG_VALIDATION"

	EnvProtoDir  = "PROTO_DIR"
	EnvRulesDir  = "RULES_DIR"
	EnvAdminPort = "ADMIN_PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Config is the fully resolved server configuration.
type Config struct {
	ConnectEnabled     bool
	ConnectPort        int
	ConnectCORSEnabled bool
	ConnectCORSOrigins []string

	GRPCPort       int
	GRPCTLSPort    int
	GRPCTLSCert    string
	GRPCTLSKey     string
	GRPCMTLSEnable bool
	GRPCMTLSCACert string

	ValidationEnabled bool
	ValidationSource  validation.Dialect
	ValidationMode    validation.Mode
	ValidationCELMsg  validation.CELMessageMode
	DebugValidation   bool

	ProtoDir  string
	RulesDir  string
	AdminPort int
	LogLevel  string
	LogFormat string
}

// Default returns the configuration's documented defaults, before any
// environment overrides are applied.
func Default() Config {
	return Config{
		ConnectEnabled:     false,
		ConnectPort:        50052,
		ConnectCORSEnabled: false,
		ConnectCORSOrigins: nil,

		GRPCPort:       50051,
		GRPCTLSPort:    0,
		GRPCMTLSEnable: false,

		ValidationEnabled: true,
		ValidationSource:  validation.DialectAuto,
		ValidationMode:    validation.ModePerMessage,
		ValidationCELMsg:  validation.CELMessageOff,
		DebugValidation:   false,

		ProtoDir:  "protos",
		RulesDir:  "rules/grpc",
		AdminPort: 4280,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadEnv starts from Default and applies every recognised environment
// variable on top of it. Malformed int/bool values are left at their
// prior value rather than aborting startup.
func LoadEnv() Config {
	cfg := Default()

	if v := os.Getenv(EnvConnectEnabled); v != "" {
		cfg.ConnectEnabled = parseBool(v, cfg.ConnectEnabled)
	}
	if v := os.Getenv(EnvConnectPort); v != "" {
		cfg.ConnectPort = parseInt(v, cfg.ConnectPort)
	}
	if v := os.Getenv(EnvConnectCORSEnabled); v != "" {
		cfg.ConnectCORSEnabled = parseBool(v, cfg.ConnectCORSEnabled)
	}
	if v := os.Getenv(EnvConnectCORSOrigins); v != "" {
		cfg.ConnectCORSOrigins = parseOrigins(v)
	}

	if v := os.Getenv(EnvGRPCPort); v != "" {
		cfg.GRPCPort = parseInt(v, cfg.GRPCPort)
	}
	if v := os.Getenv(EnvGRPCTLSPort); v != "" {
		cfg.GRPCTLSPort = parseInt(v, cfg.GRPCTLSPort)
	}
	if v := os.Getenv(EnvGRPCTLSCert); v != "" {
		cfg.GRPCTLSCert = v
	}
	if v := os.Getenv(EnvGRPCTLSKey); v != "" {
		cfg.GRPCTLSKey = v
	}
	if v := os.Getenv(EnvGRPCMTLSEnable); v != "" {
		cfg.GRPCMTLSEnable = parseBool(v, cfg.GRPCMTLSEnable)
	}
	if v := os.Getenv(EnvGRPCMTLSCACert); v != "" {
		cfg.GRPCMTLSCACert = v
	}

	if v := os.Getenv(EnvValidationEnabled); v != "" {
		cfg.ValidationEnabled = parseBool(v, cfg.ValidationEnabled)
	}
	if v := os.Getenv(EnvValidationSource); v != "" {
		cfg.ValidationSource = validation.NormalizeDialect(v)
	}
	if v := os.Getenv(EnvValidationMode); v != "" {
		cfg.ValidationMode = validation.NormalizeMode(v)
	}
	if v := os.Getenv(EnvValidationCELMsg); v != "" {
		cfg.ValidationCELMsg = validation.NormalizeCELMessageMode(v)
	}
	if v := os.Getenv(EnvDebugValidation); v != "" {
		cfg.DebugValidation = parseBool(v, cfg.DebugValidation)
	}

	if v := os.Getenv(EnvProtoDir); v != "" {
		cfg.ProtoDir = v
	}
	if v := os.Getenv(EnvRulesDir); v != "" {
		cfg.RulesDir = v
	}
	if v := os.Getenv(EnvAdminPort); v != "" {
		cfg.AdminPort = parseInt(v, cfg.AdminPort)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// LoggingConfig adapts this configuration's log fields into a
// logging.Config, the shape pkg/logging.New expects.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.LogLevel),
		Format: logging.ParseFormat(c.LogFormat),
	}
}

func parseInt(v string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseOrigins(v string) []string {
	if strings.TrimSpace(v) == "*" {
		return []string{"*"}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
