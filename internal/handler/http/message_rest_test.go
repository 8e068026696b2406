package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
)

type mockDispatcher struct {
	sendMessageFn func(ctx context.Context, req domain.SendRequest) (*domain.Receipt, error)
	got           []domain.SendRequest
}

func (m *mockDispatcher) SendMessage(ctx context.Context, req domain.SendRequest) (*domain.Receipt, error) {
	m.got = append(m.got, req)
	return m.sendMessageFn(ctx, req)
}

type mockState domain.State

func (m mockState) State() domain.State { return domain.State(m) }

func postJSON(t *testing.T, h *MessageHandler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func handlerReturning(receipt *domain.Receipt, err error) (*MessageHandler, *mockDispatcher) {
	d := &mockDispatcher{sendMessageFn: func(context.Context, domain.SendRequest) (*domain.Receipt, error) {
		return receipt, err
	}}
	return NewMessageHandler(d, mockState(domain.StateReady), zap.NewNop()), d
}

func TestSendMessage_OK(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h, d := handlerReturning(&domain.Receipt{ID: "3EB0ABC", To: "62851234567890@s.whatsapp.net", Timestamp: ts}, nil)

	rec, out := postJSON(t, h, `{"number":"0851234567890","message":"hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["status"])
	resp := out["response"].(map[string]interface{})
	assert.Equal(t, "3EB0ABC", resp["id"])
	assert.Equal(t, []domain.SendRequest{{Number: "0851234567890", Message: "hello"}}, d.got)
}

func TestSendMessage_FormBody(t *testing.T) {
	h, d := handlerReturning(&domain.Receipt{ID: "1"}, nil)

	form := url.Values{"number": {"0812"}, "message": {"hi there"}}
	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.SendRequest{{Number: "0812", Message: "hi there"}}, d.got)
}

func TestSendMessage_ValidationError(t *testing.T) {
	h, _ := handlerReturning(nil, &domain.ValidationError{Fields: map[string]string{"number": "Invalid value"}})

	rec, out := postJSON(t, h, `{"message":"hello"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, true, out["status"])
	assert.Equal(t, map[string]interface{}{"number": "Invalid value"}, out["message"])
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message interface{}
		detail  interface{}
	}{
		{
			name:    "not ready",
			err:     fmt.Errorf("%w (state=pairing)", domain.ErrNotReady),
			code:    http.StatusServiceUnavailable,
			message: "WhatsApp is not ready",
		},
		{
			name:    "not registered",
			err:     fmt.Errorf("62812@c.us: %w", domain.ErrNotRegistered),
			code:    http.StatusUnprocessableEntity,
			message: "The number is not registered!",
		},
		{
			name:   "lookup failed",
			err:    fmt.Errorf("check 62812@c.us: %w: timeout", domain.ErrLookupFailed),
			code:   http.StatusInternalServerError,
			detail: "check 62812@c.us: registration lookup failed: timeout",
		},
		{
			name:   "send failed",
			err:    fmt.Errorf("send to 62812@c.us: %w: boom", domain.ErrSendFailed),
			code:   http.StatusInternalServerError,
			detail: "send to 62812@c.us: send failed: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := handlerReturning(nil, tt.err)
			rec, out := postJSON(t, h, `{"number":"0812","message":"hi"}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, false, out["status"])
			assert.Equal(t, tt.message, out["message"])
			assert.Equal(t, tt.detail, out["response"])
		})
	}
}

func TestSendMessage_MalformedJSON(t *testing.T) {
	h, d := handlerReturning(nil, nil)
	rec, out := postJSON(t, h, `{"number":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["status"])
	assert.Empty(t, d.got)
}

func TestSendMessage_EmptyJSONBodyIsValidated(t *testing.T) {
	d := &mockDispatcher{sendMessageFn: func(_ context.Context, req domain.SendRequest) (*domain.Receipt, error) {
		return nil, req.Validate()
	}}
	h := NewMessageHandler(d, mockState(domain.StateReady), zap.NewNop())

	rec, out := postJSON(t, h, ``)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, true, out["status"])
	assert.Equal(t, map[string]interface{}{"number": "Invalid value", "message": "Invalid value"}, out["message"])
	assert.Equal(t, []domain.SendRequest{{}}, d.got)
}

func TestHealth_ReportsState(t *testing.T) {
	h := NewMessageHandler(&mockDispatcher{}, mockState(domain.StatePairing), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":true,"state":"pairing"}`, rec.Body.String())
}
