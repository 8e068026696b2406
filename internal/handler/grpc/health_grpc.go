package grpchandler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"whatsapp-gateway/internal/domain"
)

// SessionService is the health-checked service name.
const SessionService = "whatsapp.Session"

// HealthHandler serves grpc.health.v1 and reports SessionService as
// SERVING only while the session is ready.
type HealthHandler struct {
	srv    *health.Server
	logger *zap.Logger
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	srv := health.NewServer()
	srv.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthHandler{srv: srv, logger: logger.Named("grpc-health")}
}

func (h *HealthHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Run follows session events until the feed closes or ctx is done.
func (h *HealthHandler) Run(ctx context.Context, events <-chan domain.Event) {
	defer h.srv.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.apply(ev)
		}
	}
}

func (h *HealthHandler) apply(ev domain.Event) {
	switch ev.Kind {
	case domain.EventReady:
		h.set(healthpb.HealthCheckResponse_SERVING)
	case domain.EventDisconnected, domain.EventLoggedOut, domain.EventPairingExpired:
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

func (h *HealthHandler) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus(SessionService, status)
	h.logger.Debug("health status updated", zap.String("status", status.String()))
}
