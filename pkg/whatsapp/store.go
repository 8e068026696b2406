package whatsapp

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
)

// OpenDevice prepares the whatsmeow device tables on pool and returns the
// device named by blob, or a fresh unpaired device when blob is nil or
// no longer present in the store.
func OpenDevice(ctx context.Context, pool *pgxpool.Pool, blob *domain.AuthBlob, logger *zap.Logger, waLogLevel string) (*store.Device, error) {
	db := stdlib.OpenDBFromPool(pool)
	container := sqlstore.NewWithDB(db, "postgres", NewLogger(logger.Named("whatsmeow.db"), waLogLevel))
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade device store: %w", err)
	}

	if blob == nil {
		logger.Info("no stored session, starting a new pairing")
		return container.NewDevice(), nil
	}

	jid, err := types.ParseJID(blob.JID)
	if err != nil {
		logger.Warn("stored session has an invalid jid", zap.String("jid", blob.JID), zap.Error(err))
		return container.NewDevice(), nil
	}
	device, err := container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", jid, err)
	}
	if device == nil {
		logger.Warn("stored session not found in device store", zap.String("jid", blob.JID))
		return container.NewDevice(), nil
	}
	logger.Info("resuming stored session", zap.String("jid", blob.JID))
	return device, nil
}
