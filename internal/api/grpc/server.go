package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"boardgame-rental-backend/internal/api/grpc/interceptor"
	"boardgame-rental-backend/internal/logger"
)

// ServiceName is the health entry that tracks the backing store.
const ServiceName = "boardgame.rental.v1.Backend"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds the gRPC server carrying the standard health service and
// reflection for grpcurl.
func NewServer() (*grpc.Server, *health.Server) {
	logging := interceptor.NewLoggingInterceptor()
	s := grpc.NewServer(
		grpc.UnaryInterceptor(logging.Unary()),
		grpc.StreamInterceptor(logging.Stream()),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s, hs
}

// CheckHealth pings the store once and records the result for both the
// overall server and ServiceName.
func CheckHealth(ctx context.Context, hs *health.Server, pinger Pinger) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := pinger.Ping(pingCtx); err != nil {
		logger.Warn("Health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
	return status == healthpb.HealthCheckResponse_SERVING
}

// WatchHealth re-checks the store every interval until ctx is done, then
// marks the server as shutting down.
func WatchHealth(ctx context.Context, hs *health.Server, pinger Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	CheckHealth(ctx, hs, pinger)
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			CheckHealth(ctx, hs, pinger)
		}
	}
}
