package domain

import "time"

// State is the lifecycle position of the messaging session.
type State string

const (
	StateUninitialized  State = "uninitialized"
	StatePairing        State = "pairing"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateReady          State = "ready"
	StatePairingExpired State = "pairing_expired"
	StateLoggedOut      State = "logged_out"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StatePairingExpired || s == StateLoggedOut
}

type EventKind string

const (
	EventQR             EventKind = "qr"
	EventAuthenticated  EventKind = "authenticated"
	EventReady          EventKind = "ready"
	EventMessage        EventKind = "message"
	EventDisconnected   EventKind = "disconnected"
	EventLoggedOut      EventKind = "logged_out"
	EventPairingExpired EventKind = "pairing_expired"
)

// Event is a lifecycle notification published by the session.
type Event struct {
	Kind EventKind
	Code string    // pairing token, only for EventQR
	Text string    // human readable detail
	Auth *AuthBlob // only for EventAuthenticated
	From State     // session state when the event arrived
	At   time.Time
}

// AuthBlob identifies a paired device. It is persisted as-is and never
// validated locally; the server decides on the next connect.
type AuthBlob struct {
	JID             string    `json:"jid"`
	LID             string    `json:"lid,omitempty"`
	PushName        string    `json:"push_name,omitempty"`
	BusinessName    string    `json:"business_name,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}
