package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wishmock/wishmock/internal/config"
	"github.com/wishmock/wishmock/pkg/admin"
	"github.com/wishmock/wishmock/pkg/gateway"
	"github.com/wishmock/wishmock/pkg/logging"
	"github.com/wishmock/wishmock/pkg/metrics"
	"github.com/wishmock/wishmock/pkg/world"
)

// shutdownTimeout bounds how long serve waits for in-flight calls to
// drain on SIGINT/SIGTERM before forcing listeners closed.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server",
	Long: `Start the mock server: compile the loaded .proto definitions, index the
rule store, and serve native gRPC, and optionally Connect/gRPC-Web and the
admin API, until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadEnv()
	log := logging.New(cfg.LoggingConfig())
	metrics.Init()
	runtimeCollector := metrics.NewRuntimeCollector(metrics.DefaultRegistry(), metrics.UptimeSeconds)
	stopRuntimeCollector := runtimeCollector.StartCollector(15 * time.Second)
	defer stopRuntimeCollector()

	w, err := world.Build(world.Config{
		ProtoDir:          cfg.ProtoDir,
		RulesDir:          cfg.RulesDir,
		ValidationEnabled: cfg.ValidationEnabled,
		ValidationSource:  cfg.ValidationSource,
		ValidationMode:    cfg.ValidationMode,
		CELMessageMode:    cfg.ValidationCELMsg,
	}, log)
	if err != nil {
		return fmt.Errorf("building initial world: %w", err)
	}
	reg := world.NewRegistry(w)
	log.Info("loaded schema and rules",
		"services", w.Descriptor.ServiceCount(),
		"methods", w.Descriptor.MethodCount(),
		"rules", w.Rules.Count())
	for _, le := range w.Rules.LoadErrors {
		log.Warn("rule file failed to parse", "file", le.File, "error", le.Message)
	}

	gw := &gateway.Gateway{
		Registry: reg,
		Log:      log,
		CORS:     gateway.CORSConfig{Enabled: cfg.ConnectCORSEnabled, Origins: cfg.ConnectCORSOrigins},
	}

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	tlsCfg := gateway.TLSConfig{
		CertFile:   cfg.GRPCTLSCert,
		KeyFile:    cfg.GRPCTLSKey,
		MTLSEnable: cfg.GRPCMTLSEnable,
		CACertFile: cfg.GRPCMTLSCACert,
	}
	if err := gw.StartGRPC(grpcAddr, tlsCfg); err != nil {
		return fmt.Errorf("starting gRPC listener: %w", err)
	}
	log.Info("native gRPC listening", "address", gw.GRPCAddress())

	if cfg.ConnectEnabled {
		connectAddr := fmt.Sprintf(":%d", cfg.ConnectPort)
		if err := gw.StartConnect(connectAddr); err != nil {
			return fmt.Errorf("starting Connect/gRPC-Web listener: %w", err)
		}
		log.Info("Connect/gRPC-Web listening", "address", gw.ConnectAddress())
	}

	adminAPI := admin.NewAPI(reg, cfg, log, Version)
	if addr := gw.GRPCAddress(); addr != "" {
		adminAPI.GRPCAddress.Store(&addr)
	}
	if addr := gw.ConnectAddress(); addr != "" {
		adminAPI.ConnectAddress.Store(&addr)
	}
	adminAddr := fmt.Sprintf(":%d", cfg.AdminPort)
	go func() {
		if err := adminAPI.Start(adminAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin API error", "error", err)
		}
	}()
	log.Info("admin API listening", "address", adminAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gw.Stop(ctx, shutdownTimeout); err != nil {
		log.Warn("gateway shutdown error", "error", err)
	}
	if err := adminAPI.Stop(); err != nil {
		log.Warn("admin API shutdown error", "error", err)
	}
	return nil
}
