package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCHealth serves the standard gRPC health service, kept in sync with the
// HTTP readiness probes.
type GRPCHealth struct {
	server  *grpc.Server
	health  *health.Server
	checker *HealthChecker
	logger  *slog.Logger
}

func NewGRPCHealth(checker *HealthChecker, logger *slog.Logger) *GRPCHealth {
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)
	return &GRPCHealth{server: grpcServer, health: hs, checker: checker, logger: logger}
}

// Serve blocks until the listener fails or Stop is called.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	g.logger.Info("gRPC health serving", "addr", lis.Addr().String())
	return g.server.Serve(lis)
}

// Watch re-runs the checker every interval and flips the serving status.
func (g *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	if g.checker == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		g.health.SetServingStatus("", g.status(ctx))
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (g *GRPCHealth) status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	cctx, cancel := context.WithTimeout(ctx, g.checker.timeout)
	defer cancel()
	if g.checker.Run(cctx).Status == StatusDown {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// Stop marks the service as not serving and drains in-flight RPCs.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
