package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
	hrest "whatsapp-gateway/internal/handler/http"
	wshandler "whatsapp-gateway/internal/handler/ws"
	"whatsapp-gateway/pkg/notifier/ws"
)

type stubDispatcher struct{}

func (stubDispatcher) SendMessage(context.Context, domain.SendRequest) (*domain.Receipt, error) {
	return &domain.Receipt{ID: "1"}, nil
}

type stubState struct{}

func (stubState) State() domain.State { return domain.StateReady }

func newTestRouter(limit func(http.Handler) http.Handler) http.Handler {
	h := hrest.NewMessageHandler(stubDispatcher{}, stubState{}, zap.NewNop())
	wsh := wshandler.NewWSHandler(ws.NewManager(zap.NewNop()), nil, zap.NewNop())
	return SetupRoutes(chi.NewRouter(), h, wsh, []string{"*"}, limit)
}

func TestRoutes_ServePage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/ws")
}

func TestRoutes_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wa_session_ready")
}

func TestRoutes_SendMessageGoesThroughLimiter(t *testing.T) {
	var limited int
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited++
			next.ServeHTTP(w, r)
		})
	}
	r := newTestRouter(limit)

	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(`{"number":"0812","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 1, limited)
}

func TestRoutes_SendMessageIsPostOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/send-message", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
