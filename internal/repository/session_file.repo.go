package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
)

// SessionRepository keeps the authentication blob in a single JSON file.
type SessionRepository struct {
	path   string
	logger *zap.Logger
}

func NewSessionRepository(path string, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{path: path, logger: logger.Named("session-store")}
}

// Load returns the persisted blob. A missing or unreadable file is
// reported as absent so the caller starts a fresh pairing.
func (r *SessionRepository) Load() (*domain.AuthBlob, bool) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("failed to read session file", zap.String("path", r.path), zap.Error(err))
		}
		return nil, false
	}

	var blob domain.AuthBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		r.logger.Warn("ignoring unparsable session file", zap.String("path", r.path), zap.Error(err))
		return nil, false
	}
	if blob.JID == "" {
		return nil, false
	}
	return &blob, true
}

// Save replaces the file wholesale.
func (r *SessionRepository) Save(ctx context.Context, blob *domain.AuthBlob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Persist drains lifecycle events and saves the blob on every
// "authenticated" event. Failures are logged, never retried.
func (r *SessionRepository) Persist(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != domain.EventAuthenticated || ev.Auth == nil {
				continue
			}
			if err := r.Save(ctx, ev.Auth); err != nil {
				r.logger.Error("failed to persist session", zap.String("jid", ev.Auth.JID), zap.Error(err))
				continue
			}
			r.logger.Info("session persisted", zap.String("jid", ev.Auth.JID), zap.String("path", r.path))
		}
	}
}
