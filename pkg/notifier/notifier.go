package notifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
	"whatsapp-gateway/pkg/notifier/ws"
)

// Status texts pushed on the "message" channel.
const (
	MsgConnecting     = "Connecting..."
	MsgQRCreated      = "QR Code success created, scan me please!"
	MsgAuthenticated  = "WhatsApp is authenticated!"
	MsgReady          = "WhatsApp is ready!"
	MsgExpired        = "QR Code expired, restart the service to pair again"
	MsgConnectExpired = "WhatsApp did not become ready in time, restart the service to try again"
	MsgDisconnected   = "WhatsApp connection lost, reconnecting..."
	MsgLoggedOut      = "WhatsApp was logged out, restart the service to pair again"
)

const qrImageSize = 256

type Broadcaster interface {
	Broadcast(msg ws.Message)
}

// Notifier relays session lifecycle events to every connected viewer.
// It keeps no history: a viewer only sees what happens after it joins.
type Notifier struct {
	WS      Broadcaster
	Console io.Writer // terminal QR output, nil disables
	logger  *zap.Logger
}

func NewNotifier(b Broadcaster, console io.Writer, logger *zap.Logger) *Notifier {
	return &Notifier{WS: b, Console: console, logger: logger.Named("notifier")}
}

// Run consumes events until the feed is closed or ctx is done.
func (n *Notifier) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.Notify(ev)
		}
	}
}

func (n *Notifier) Notify(ev domain.Event) {
	switch ev.Kind {
	case domain.EventQR:
		n.logger.Info("QR RECEIVED", zap.String("code", ev.Code))
		if n.Console != nil {
			qrterminal.GenerateHalfBlock(ev.Code, qrterminal.L, n.Console)
		}
		url, err := QRDataURL(ev.Code)
		if err != nil {
			n.logger.Error("failed to render qr code", zap.Error(err))
			return
		}
		n.push("qr", url)
		n.push("message", MsgQRCreated)
	case domain.EventAuthenticated:
		n.push("authenticated", MsgAuthenticated)
		n.push("message", MsgAuthenticated)
	case domain.EventReady:
		n.push("ready", MsgReady)
		n.push("message", MsgReady)
	case domain.EventPairingExpired:
		if ev.From == domain.StatePairing {
			n.push("message", MsgExpired)
		} else {
			n.push("message", MsgConnectExpired)
		}
	case domain.EventDisconnected:
		n.push("message", MsgDisconnected)
	case domain.EventLoggedOut:
		n.push("message", MsgLoggedOut)
	case domain.EventMessage:
		n.push("message", ev.Text)
	}
}

func (n *Notifier) push(event, data string) {
	n.WS.Broadcast(ws.Message{Event: event, Data: data})
}

// QRDataURL renders code as a PNG data URL an <img> tag can display.
func QRDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
