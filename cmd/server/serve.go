package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/call"
	"mentor-meet-api/internal/config"
	"mentor-meet-api/internal/directory"
	"mentor-meet-api/internal/grpcweb"
	"mentor-meet-api/internal/handler"
	"mentor-meet-api/internal/live"
	"mentor-meet-api/internal/logger"
	"mentor-meet-api/internal/metrics"
	"mentor-meet-api/internal/middleware"
	"mentor-meet-api/internal/scheduler"
	"mentor-meet-api/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC server and the web bridge (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "mentor-meet-api")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("store ready")

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a, err := newApp(cfg, log, st, newProvisioner(cfg, log), reg, "localhost:"+cfg.GRPCPort)
	if err != nil {
		lis.Close()
		return err
	}
	defer a.close()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           a.web,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		log.Info("grpc listening", "addr", lis.Addr().String())
		if err := a.grpc.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		log.Info("web listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
		log.Error("server failed", "error", serveErr)
	}

	log.Info("shutting down")
	a.health.Shutdown()
	a.hub.Close()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	a.grpc.GracefulStop()
	return serveErr
}

func newProvisioner(cfg *config.Config, log *slog.Logger) call.Provisioner {
	if cfg.CallProvider == "memory" {
		log.Warn("using in-memory call provider")
		return call.NewMemory()
	}
	return call.NewClient(&http.Client{Timeout: cfg.ProvisionTimeout}, log, call.ClientConfig{
		BaseURL:   cfg.CallBaseURL,
		APIKey:    cfg.CallAPIKey,
		APISecret: cfg.CallAPISecret,
		CallType:  cfg.CallType,
	})
}

// app holds the wired servers. grpcAddr is where the web bridge dials the
// gRPC server; the connection is lazy so it may be created before Serve.
type app struct {
	grpc    *grpc.Server
	health  *health.Server
	hub     *live.Hub
	bridge  *grpcweb.Bridge
	limiter *middleware.RateLimiter
	web     http.Handler
}

func newApp(cfg *config.Config, log *slog.Logger, st backend, calls call.Provisioner, reg *prometheus.Registry, grpcAddr string) (*app, error) {
	slots, err := scheduler.NewSlots(cfg.SlotStart, cfg.SlotEnd, cfg.SlotStep)
	if err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	dir := directory.New(st)
	hub := live.NewHub(log)
	sched := scheduler.New(dir, calls, st,
		scheduler.WithLogger(log),
		scheduler.WithMetrics(metrics.NewCollector(reg)),
		scheduler.WithNotifier(hub),
		scheduler.WithSlots(slots),
		scheduler.WithLocation(loc),
		scheduler.WithTimeouts(cfg.ProvisionTimeout, cfg.PersistTimeout),
		scheduler.WithObserver(func(initiatorID string, from, to scheduler.State) {
			log.Debug("schedule attempt", "initiator", initiatorID, "from", from.String(), "to", to.String())
		}),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer),
			middleware.RateLimit(limiter),
		),
		grpc.ChainStreamInterceptor(middleware.StreamAuth(cfg.JWTSecret, cfg.JWTIssuer)),
	)
	handler.Register(gs, handler.New(dir, st, sched, log))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	bridge, err := grpcweb.New(grpcAddr, log, grpcweb.WithOrigins(cfg.WebOrigins...))
	if err != nil {
		limiter.Close()
		return nil, err
	}

	return &app{
		grpc:    gs,
		health:  hs,
		hub:     hub,
		bridge:  bridge,
		limiter: limiter,
		web: newRouter(log, st, reg,
			live.NewHandler(hub, st, cfg.JWTSecret, cfg.JWTIssuer),
			bridge.Handler()),
	}, nil
}

func (a *app) close() {
	a.bridge.Close()
	a.limiter.Close()
	a.hub.Close()
}
