// Package health exposes the grpc.health.v1 service so orchestrators can
// probe the agent without going through HTTP.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AgentService is the service name reported for the sales agent.
const AgentService = "upsell.agent.v1.Agent"

const defaultProbeInterval = 30 * time.Second

// Pinger is a dependency whose reachability decides the overall status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves gRPC health checks. The overall status follows the session
// database; AgentService is NOT_SERVING while no generation credential is set.
type Server struct {
	grpc      *grpc.Server
	health    *grpchealth.Server
	db        Pinger
	aiEnabled bool
	interval  time.Duration
	logger    *slog.Logger
}

// NewServer creates a health server.
func NewServer(db Pinger, aiEnabled bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		grpc:      grpc.NewServer(),
		health:    grpchealth.NewServer(),
		db:        db,
		aiEnabled: aiEnabled,
		interval:  defaultProbeInterval,
		logger:    logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.probe(context.Background())
	return s
}

// probe refreshes the reported statuses.
func (s *Server) probe(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.db.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health probe: database unreachable", "error", err)
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", overall)

	agent := healthpb.HealthCheckResponse_SERVING
	if !s.aiEnabled || overall != healthpb.HealthCheckResponse_SERVING {
		agent = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(AgentService, agent)
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is done.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.grpc.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}
