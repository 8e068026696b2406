package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"whatsapp-gateway/internal/domain"
)

func TestObserveSession_TracksReadiness(t *testing.T) {
	events := make(chan domain.Event, 4)
	before := testutil.ToFloat64(SessionEventsTotal.WithLabelValues(string(domain.EventReady)))

	events <- domain.Event{Kind: domain.EventQR}
	events <- domain.Event{Kind: domain.EventReady}
	close(events)
	ObserveSession(events)

	assert.Equal(t, before+1, testutil.ToFloat64(SessionEventsTotal.WithLabelValues(string(domain.EventReady))))
	// closing the feed means the session is gone
	assert.Equal(t, float64(0), testutil.ToFloat64(SessionReady))
}

func TestObserveSession_DisconnectClearsReady(t *testing.T) {
	events := make(chan domain.Event, 2)
	events <- domain.Event{Kind: domain.EventReady}
	events <- domain.Event{Kind: domain.EventDisconnected}
	close(events)

	ObserveSession(events)
	assert.Equal(t, float64(0), testutil.ToFloat64(SessionReady))
}
