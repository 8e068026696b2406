package grpchandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"whatsapp-gateway/internal/domain"
)

func status(t *testing.T, h *HealthHandler) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: SessionService})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_NotServingUntilReady(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, h))

	h.apply(domain.Event{Kind: domain.EventQR})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, h))

	h.apply(domain.Event{Kind: domain.EventReady})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, h))
}

func TestHealth_DropsOnLifecycleLoss(t *testing.T) {
	for _, kind := range []domain.EventKind{domain.EventDisconnected, domain.EventLoggedOut, domain.EventPairingExpired} {
		t.Run(string(kind), func(t *testing.T) {
			h := NewHealthHandler(zap.NewNop())
			h.apply(domain.Event{Kind: domain.EventReady})
			h.apply(domain.Event{Kind: kind})
			assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, h))
		})
	}
}

func TestHealth_RunShutsDownWhenFeedCloses(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	events := make(chan domain.Event, 1)
	events <- domain.Event{Kind: domain.EventReady}
	close(events)

	h.Run(context.Background(), events)

	// Shutdown forces every service to NOT_SERVING.
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, h))
}
