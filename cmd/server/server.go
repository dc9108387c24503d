package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/config"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
	"github.com/KirkDiggler/rpg-tabletop/internal/telemetry"
)

const serviceName = "rpg-tabletop"

var (
	configPath string
	grpcPort   int
	httpPort   int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gRPC server",
	Long:  `Start the tabletop session gRPC server and, unless broadcasting is disabled, the websocket event endpoint.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "YAML config file overlaid on RPG_* environment variables")
	serverCmd.Flags().IntVar(&grpcPort, "grpc-port", 0, "gRPC server port, overrides the config")
	serverCmd.Flags().IntVar(&httpPort, "http-port", 0, "Event server port, overrides the config")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.GRPCPort = grpcPort
	}
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort = httpPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		SessionService: deps.sessions,
		Membership:     deps.membership,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create session handler")
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", cfg.GRPCPort)
	}

	srv := newGRPCServer()
	v1alpha1.RegisterSessionServiceServer(srv, handler)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1alpha1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 2)
	go func() {
		slog.Info("gRPC server starting", "port", cfg.GRPCPort, "store", cfg.Store, "broadcast", cfg.Broadcast)
		if err := srv.Serve(lis); err != nil {
			errChan <- errors.Wrap(err, "failed to serve grpc")
		}
	}()

	var httpServer *http.Server
	if deps.hub != nil {
		httpServer = newHTTPServer(cfg.HTTPPort, deps.hub)
		go func() {
			slog.Info("Event server starting", "port", cfg.HTTPPort)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- errors.Wrap(err, "failed to serve events")
			}
		}()
	}

	if deps.relay {
		go func() {
			if err := broadcast.Relay(ctx, deps.redis, deps.hub); err != nil {
				errChan <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal, gracefully stopping")
	case err := <-errChan:
		slog.Error("Server failed", "error", err)
		shutdown(srv, httpServer, healthServer, cfg.ShutdownTimeout)
		return err
	}

	shutdown(srv, httpServer, healthServer, cfg.ShutdownTimeout)
	return nil
}

func newGRPCServer() *grpc.Server {
	logger := interceptorLogger(slog.Default())
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(logger,
				grpc_logging.WithLogOnEvents(grpc_logging.StartCall, grpc_logging.FinishCall)),
			grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandlerContext(recoverPanic)),
		),
	)
}

func newHTTPServer(port int, hub *broadcast.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /sessions/{id}/events", hub)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func recoverPanic(ctx context.Context, p any) error {
	slog.ErrorContext(ctx, "Recovered from panic in handler", "panic", p)
	return errors.ToGRPCError(errors.Internal("internal error"))
}

func shutdown(srv *grpc.Server, httpServer *http.Server, healthServer *health.Server, timeout time.Duration) {
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Event server did not shut down cleanly", "error", err)
		}
	}

	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
		srv.Stop()
	case <-stopped:
		slog.Info("Server stopped gracefully")
	}
}
