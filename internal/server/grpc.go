// Package server hosts the gRPC side of the triage service: a health service
// whose serving status follows live checks of the database and Temporal.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the triage service.
const ServiceName = "helpdesk.triage.v1.TriageService"

// DefaultCheckInterval is how often dependencies are checked.
const DefaultCheckInterval = 15 * time.Second

// NewGRPCServer creates a gRPC server with keepalive and size limits,
// registers the health service and reflection, and returns both.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
		grpc.MaxConcurrentStreams(100),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  5 * time.Minute,
			Timeout:               1 * time.Minute,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Minute,
			PermitWithoutStream: true,
		}),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// Dependency is one checked dependency. A nil error means healthy.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// StatusSetter is the part of *health.Server the monitor drives.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// HealthMonitor checks dependencies on an interval and publishes the result
// as the serving status of ServiceName and of the overall server ("").
type HealthMonitor struct {
	setter   StatusSetter
	deps     []Dependency
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	failing map[string]string
}

// NewHealthMonitor creates a monitor. An interval of zero uses DefaultCheckInterval.
func NewHealthMonitor(setter StatusSetter, interval time.Duration, logger zerolog.Logger, deps ...Dependency) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &HealthMonitor{
		setter:   setter,
		deps:     deps,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger.With().Str("component", "health_monitor").Logger(),
		failing:  make(map[string]string),
	}
}

// Run checks immediately and then on every tick until ctx is cancelled, at
// which point the service is marked not serving.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.CheckOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs every dependency check and updates the serving status.
// It reports whether all checks passed.
func (m *HealthMonitor) CheckOnce(ctx context.Context) bool {
	failing := make(map[string]string)
	for _, d := range m.deps {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := d.Check(cctx)
		cancel()
		if err != nil {
			failing[d.Name] = err.Error()
		}
	}

	m.mu.Lock()
	previous := m.failing
	m.failing = failing
	m.mu.Unlock()

	for name, reason := range failing {
		if _, already := previous[name]; !already {
			m.logger.Warn().Str("dependency", name).Str("error", reason).Msg("dependency unhealthy")
		}
	}
	for name := range previous {
		if _, still := failing[name]; !still {
			m.logger.Info().Str("dependency", name).Msg("dependency recovered")
		}
	}

	if len(failing) == 0 {
		m.setAll(healthpb.HealthCheckResponse_SERVING)
		return true
	}
	m.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
	return false
}

// Failing returns the failing dependencies and their last error.
func (m *HealthMonitor) Failing() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.failing))
	for k, v := range m.failing {
		out[k] = v
	}
	return out
}

func (m *HealthMonitor) setAll(status healthpb.HealthCheckResponse_ServingStatus) {
	m.setter.SetServingStatus(ServiceName, status)
	m.setter.SetServingStatus("", status)
}
