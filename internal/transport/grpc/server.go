package grpcx

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cwrk-planet/poll-service/pkg/logger"
)

// ServiceName - имя сервиса в grpc.health.v1; пустое имя отражает общий статус.
const ServiceName = "poll.v1.PollService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer собирает gRPC-сервер с интерсепторами, otel stats handler,
// health и reflection. Прикладных RPC здесь нет: это служебный listener.
func NewServer(hs *health.Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv
}

// Health держит статус grpc.health.v1 в соответствии с доступностью хранилища.
type Health struct {
	srv      *health.Server
	store    Pinger
	interval time.Duration
}

func NewHealth(store Pinger, interval time.Duration) *Health {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{srv: hs, store: store, interval: interval}
}

func (h *Health) Server() *health.Server { return h.srv }

// Check пингует хранилище один раз и обновляет статус.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(pctx); err != nil {
		logger.FromContext(ctx).Warn("store ping failed", "err", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(ServiceName, st)
	return st
}

// Run периодически проверяет хранилище до отмены ctx, затем переводит
// статус в NOT_SERVING навсегда.
func (h *Health) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
