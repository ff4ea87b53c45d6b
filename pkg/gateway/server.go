package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/wishmock/wishmock/pkg/world"
)

// TLSConfig names optional certificate material for the native gRPC
// listener; a zero value means plaintext.
type TLSConfig struct {
	CertFile   string
	KeyFile    string
	MTLSEnable bool
	CACertFile string
}

// Gateway owns the two listeners the Protocol Gateway exposes: native
// gRPC on its own port (optionally TLS/mTLS), and Connect + gRPC-Web
// sharing one h2c-wrapped HTTP listener so both proto-typed and
// JSON-typed calls work without a TLS terminator in front, matching
// this codebase's Start/Stop/IsRunning lifecycle shape.
type Gateway struct {
	Registry *world.Registry
	Log      *slog.Logger
	CORS     CORSConfig

	grpcSrv     *grpc.Server
	grpcListen  net.Listener
	connectSrv  *http.Server
	connectLstn net.Listener

	mu      sync.Mutex
	running bool
}

func (g *Gateway) log() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.New(slog.DiscardHandler)
}

// StartGRPC binds and serves native gRPC on addr. tls, if non-zero,
// enables transport security (and client-cert verification when
// MTLSEnable is set).
func (g *Gateway) StartGRPC(addr string, tlsCfg TLSConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", addr, err)
	}

	var opts []grpc.ServerOption
	if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("gateway: load TLS keypair: %w", err)
		}
		conf := &tls.Config{Certificates: []tls.Certificate{cert}}
		if tlsCfg.MTLSEnable {
			conf.ClientAuth = tls.RequireAndVerifyClientCert
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(conf)))
	}

	handler := &GRPCHandler{Registry: g.Registry, Log: g.Log}
	g.grpcSrv = handler.NewGRPCServer(opts...)
	g.grpcListen = listener

	go func() {
		if err := g.grpcSrv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.log().Error("native gRPC server error", "error", err)
		}
	}()
	g.running = true
	return nil
}

// StartConnect binds and serves Connect + gRPC-Web on addr, over h2c so
// HTTP/1.1 and plaintext HTTP/2 clients both work.
func (g *Gateway) StartConnect(addr string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", addr, err)
	}

	httpHandler := &HTTPHandler{Registry: g.Registry, Log: g.Log, CORS: g.CORS}
	g.connectSrv = &http.Server{Handler: h2c.NewHandler(httpHandler, &http2.Server{})}
	g.connectLstn = listener

	go func() {
		if err := g.connectSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log().Error("Connect/gRPC-Web server error", "error", err)
		}
	}()
	g.running = true
	return nil
}

// Stop gracefully shuts down whichever listeners were started, forcing
// a hard stop after timeout.
func (g *Gateway) Stop(ctx context.Context, timeout time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			g.grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			g.grpcSrv.Stop()
		case <-ctx.Done():
			g.grpcSrv.Stop()
		}
	}

	if g.connectSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := g.connectSrv.Shutdown(shutdownCtx); err != nil {
			_ = g.connectSrv.Close()
		}
	}

	g.running = false
	return nil
}

// IsRunning reports whether StartGRPC or StartConnect has been called
// without a matching Stop.
func (g *Gateway) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// GRPCAddress returns the bound native gRPC address, or "" if not
// started.
func (g *Gateway) GRPCAddress() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grpcListen == nil {
		return ""
	}
	return g.grpcListen.Addr().String()
}

// ConnectAddress returns the bound Connect/gRPC-Web address, or "" if
// not started.
func (g *Gateway) ConnectAddress() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connectLstn == nil {
		return ""
	}
	return g.connectLstn.Addr().String()
}
