package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
	"whatsapp-gateway/internal/metrics"
	"whatsapp-gateway/internal/pkg/phone"
	"whatsapp-gateway/internal/session"
	"whatsapp-gateway/pkg/utils/id"
)

// ReadySource hands out the send handle once the session is ready.
type ReadySource interface {
	Ready() (session.Operations, error)
}

type MessageUsecase struct {
	session   ReadySource
	formatter phone.Formatter
	logger    *zap.Logger
}

func NewMessageUsecase(s ReadySource, formatter phone.Formatter, logger *zap.Logger) *MessageUsecase {
	return &MessageUsecase{
		session:   s,
		formatter: formatter,
		logger:    logger.Named("dispatch"),
	}
}

// --- usecase ---

// SendMessage runs validate -> ready check -> normalize -> registration
// check -> send. It stops at the first failing step.
func (u *MessageUsecase) SendMessage(ctx context.Context, req domain.SendRequest) (*domain.Receipt, error) {
	dispatchID := id.Generate("msg")
	log := u.logger.With(zap.String("dispatch_id", dispatchID))

	if err := req.Validate(); err != nil {
		metrics.DispatchTotal.WithLabelValues("invalid").Inc()
		log.Debug("rejected invalid request", zap.Error(err))
		return nil, err
	}

	ops, err := u.session.Ready()
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("not_ready").Inc()
		log.Warn("session not ready", zap.Error(err))
		return nil, err
	}

	dest := u.formatter.Format(req.Number)
	log = log.With(zap.String("to", dest.String()))

	start := time.Now()
	registered, err := ops.IsRegistered(ctx, dest)
	metrics.DispatchDuration.WithLabelValues("lookup").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("lookup_failed").Inc()
		log.Error("registration lookup failed", zap.Error(err))
		return nil, fmt.Errorf("check %s: %w", dest, err)
	}
	if !registered {
		metrics.DispatchTotal.WithLabelValues("not_registered").Inc()
		log.Info("destination not registered")
		return nil, fmt.Errorf("%s: %w", dest, domain.ErrNotRegistered)
	}

	start = time.Now()
	receipt, err := ops.Send(ctx, dest, req.Message)
	metrics.DispatchDuration.WithLabelValues("send").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("send_failed").Inc()
		log.Error("send failed", zap.Error(err))
		return nil, fmt.Errorf("send to %s: %w", dest, err)
	}

	metrics.DispatchTotal.WithLabelValues("sent").Inc()
	log.Info("message sent", zap.String("message_id", receipt.ID))
	return receipt, nil
}

