package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
	"whatsapp-gateway/internal/response"
)

const maxBodyBytes = 1 << 20

// Dispatcher runs the send pipeline for one request.
type Dispatcher interface {
	SendMessage(ctx context.Context, req domain.SendRequest) (*domain.Receipt, error)
}

// StateSource reports the current session state.
type StateSource interface {
	State() domain.State
}

type MessageHandler struct {
	uc     Dispatcher
	state  StateSource
	logger *zap.Logger
}

func NewMessageHandler(uc Dispatcher, state StateSource, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{uc: uc, state: state, logger: logger.Named("http")}
}

// ----------------------
// Message Handlers
// ----------------------

// SendMessage handles POST /send-message.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSendRequest(w, r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.uc.SendMessage(r.Context(), req)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		response.JSON(w, http.StatusOK, receipt)
	case errors.As(err, &verr):
		response.Invalid(w, verr.Fields)
	case errors.Is(err, domain.ErrNotReady):
		response.Error(w, http.StatusServiceUnavailable, "WhatsApp is not ready")
	case errors.Is(err, domain.ErrNotRegistered):
		response.Error(w, http.StatusUnprocessableEntity, "The number is not registered!")
	default:
		response.Failure(w, http.StatusInternalServerError, err.Error())
	}
}

// Health handles GET /health.
func (h *MessageHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.State(w, string(h.state.State()))
}

// decodeSendRequest accepts a JSON body or a url-encoded/multipart form.
func decodeSendRequest(w http.ResponseWriter, r *http.Request) (domain.SendRequest, error) {
	var req domain.SendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		// an empty body is an empty request; validation reports the fields
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
		return req, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return req, err
		}
	} else if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Number = r.PostFormValue("number")
	req.Message = r.PostFormValue("message")
	return req, nil
}
