package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HealthMonitor keeps the gRPC health status in line with the database.
type HealthMonitor struct {
	hs      *health.Server
	db      Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthMonitor(hs *health.Server, db Pinger, timeout time.Duration, logger *slog.Logger) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthMonitor{hs: hs, db: db, timeout: timeout, logger: logger}
}

// Check pings the database once and publishes the result for the server as a
// whole and for CertificateService.
func (m *HealthMonitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := m.db.HealthCheck(ctx, m.timeout); err != nil {
		m.logger.Warn("health.db.failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.hs.SetServingStatus("", st)
	m.hs.SetServingStatus(ServiceName, st)
	return st
}

// Run checks every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}
