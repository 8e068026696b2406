package whatsapp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"whatsapp-gateway/internal/domain"
	"whatsapp-gateway/internal/pkg/phone"
)

// Client adapts a whatsmeow client to the session transport contract.
type Client struct {
	wa     *whatsmeow.Client
	logger *zap.Logger

	mu   sync.RWMutex
	emit func(domain.Event)

	// set once an "authenticated" event went out for this process
	authenticated atomic.Bool
}

func NewClient(device *store.Device, logger *zap.Logger, waLogLevel string) *Client {
	c := &Client{logger: logger.Named("whatsapp")}
	c.wa = whatsmeow.NewClient(device, NewLogger(logger.Named("whatsmeow"), waLogLevel))
	c.wa.AddEventHandler(c.handleEvent)
	return c
}

// Paired reports whether the device store already holds credentials.
func (c *Client) Paired() bool {
	return c.wa.Store.ID != nil
}

func (c *Client) Connect(ctx context.Context, emit func(domain.Event)) error {
	c.mu.Lock()
	c.emit = emit
	c.mu.Unlock()

	if !c.Paired() {
		// must be requested before Connect
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}
		go c.watchQR(qrChan)
	}
	return c.wa.Connect()
}

func (c *Client) Disconnect() {
	c.wa.Disconnect()
}

func (c *Client) IsRegistered(ctx context.Context, dest domain.Destination) (bool, error) {
	resp, err := c.wa.IsOnWhatsApp(ctx, []string{"+" + phone.User(dest)})
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)
	}
	for _, r := range resp {
		if r.IsIn {
			return true, nil
		}
	}
	return false, nil
}

// Send delivers to the user part of dest on the WhatsApp user server; the
// public suffix of dest is not part of the address.
func (c *Client) Send(ctx context.Context, dest domain.Destination, body string) (*domain.Receipt, error) {
	to := types.NewJID(phone.User(dest), types.DefaultUserServer)
	resp, err := c.wa.SendMessage(ctx, to, &waE2E.Message{Conversation: proto.String(body)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSendFailed, err)
	}
	return &domain.Receipt{
		ID:        string(resp.ID),
		To:        to.String(),
		Timestamp: resp.Timestamp,
	}, nil
}

func (c *Client) publish(ev domain.Event) {
	c.mu.RLock()
	emit := c.emit
	c.mu.RUnlock()
	if emit == nil {
		c.logger.Debug("dropping event before connect", zap.String("event", string(ev.Kind)))
		return
	}
	emit(ev)
}

func (c *Client) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.logger.Info("qr code received", zap.Duration("valid_for", item.Timeout))
			c.publish(domain.Event{Kind: domain.EventQR, Code: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			c.logger.Info("qr code scanned")
		case whatsmeow.QRChannelTimeout.Event:
			c.publish(domain.Event{Kind: domain.EventPairingExpired, Text: "no QR code was scanned in time"})
		case whatsmeow.QRChannelEventError:
			c.logger.Error("pairing failed", zap.Error(item.Error))
			c.publish(domain.Event{Kind: domain.EventMessage, Text: "Pairing failed, please try again"})
		default:
			c.logger.Warn("unexpected qr channel event", zap.String("event", item.Event))
			c.publish(domain.Event{Kind: domain.EventMessage, Text: "Pairing failed: " + item.Event})
		}
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.PairSuccess:
		c.authenticated.Store(true)
		c.publish(domain.Event{Kind: domain.EventAuthenticated, Auth: &domain.AuthBlob{
			JID:             v.ID.String(),
			LID:             v.LID.String(),
			BusinessName:    v.BusinessName,
			Platform:        v.Platform,
			AuthenticatedAt: time.Now().UTC(),
		}})
	case *events.PairError:
		c.logger.Error("pair error", zap.String("jid", v.ID.String()), zap.Error(v.Error))
		c.publish(domain.Event{Kind: domain.EventMessage, Text: "Pairing failed, please try again"})
	case *events.Connected:
		if c.authenticated.CompareAndSwap(false, true) {
			c.publish(domain.Event{Kind: domain.EventAuthenticated, Auth: c.authBlob()})
		}
		c.publish(domain.Event{Kind: domain.EventReady})
	case *events.Disconnected:
		c.publish(domain.Event{Kind: domain.EventDisconnected, Text: "connection lost, reconnecting"})
	case *events.StreamReplaced:
		c.publish(domain.Event{Kind: domain.EventDisconnected, Text: "session opened elsewhere"})
	case *events.LoggedOut:
		c.logger.Warn("device logged out", zap.String("reason", v.Reason.String()))
		c.publish(domain.Event{Kind: domain.EventLoggedOut, Text: v.Reason.String()})
	}
}

func (c *Client) authBlob() *domain.AuthBlob {
	st := c.wa.Store
	blob := &domain.AuthBlob{
		PushName:        st.PushName,
		BusinessName:    st.BusinessName,
		Platform:        st.Platform,
		AuthenticatedAt: time.Now().UTC(),
	}
	if st.ID != nil {
		blob.JID = st.ID.String()
	}
	if !st.LID.IsEmpty() {
		blob.LID = st.LID.String()
	}
	return blob
}
