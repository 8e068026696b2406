package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/domain"
)

// Transport is the messaging-network client driven by the session.
// Connect returns once the connection attempt is under way; everything
// after that arrives through emit.
type Transport interface {
	Paired() bool
	Connect(ctx context.Context, emit func(domain.Event)) error
	Disconnect()
	IsRegistered(ctx context.Context, dest domain.Destination) (bool, error)
	Send(ctx context.Context, dest domain.Destination, body string) (*domain.Receipt, error)
}

// Operations is only handed out while the session is ready.
type Operations interface {
	IsRegistered(ctx context.Context, dest domain.Destination) (bool, error)
	Send(ctx context.Context, dest domain.Destination, body string) (*domain.Receipt, error)
}

const DefaultPairingTimeout = 3 * time.Minute

type Session struct {
	transport Transport
	bus       *Bus
	clock     clockwork.Clock
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.RWMutex
	state    domain.State
	deadline clockwork.Timer
	closed   bool
}

type Option func(*Session)

func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithPairingTimeout bounds the time between Initialize and Ready.
// Zero disables the deadline.
func WithPairingTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func New(transport Transport, logger *zap.Logger, opts ...Option) *Session {
	logger = logger.Named("session")
	s := &Session{
		transport: transport,
		bus:       NewBus(logger),
		clock:     clockwork.NewRealClock(),
		timeout:   DefaultPairingTimeout,
		logger:    logger,
		state:     domain.StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a feed of lifecycle events published from now on.
func (s *Session) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return s.bus.Subscribe(buffer)
}

// Initialize moves the session out of Uninitialized and starts connecting.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateUninitialized {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session already initialized (state=%s)", state)
	}
	if s.transport.Paired() {
		s.state = domain.StateConnecting
	} else {
		s.state = domain.StatePairing
	}
	if s.timeout > 0 {
		s.deadline = s.clock.AfterFunc(s.timeout, s.expire)
	}
	s.logger.Info("initializing whatsapp session", zap.String("state", string(s.state)))
	s.mu.Unlock()

	if err := s.transport.Connect(ctx, s.handle); err != nil {
		s.mu.Lock()
		s.stopDeadline()
		s.state = domain.StateUninitialized
		s.mu.Unlock()
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	return nil
}

// Ready returns the send/lookup handle, or ErrNotReady outside Ready.
func (s *Session) Ready() (Operations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.StateReady {
		return nil, fmt.Errorf("%w (state=%s)", domain.ErrNotReady, s.state)
	}
	return s.transport, nil
}

// Close tears the session down. Later calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopDeadline()
	s.mu.Unlock()

	s.transport.Disconnect()
	s.bus.Close()
}

func (s *Session) expire() {
	s.handle(domain.Event{
		Kind: domain.EventPairingExpired,
		Text: fmt.Sprintf("session did not become ready within %s", s.timeout),
	})
}

func (s *Session) handle(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}

	s.mu.Lock()
	prev := s.state
	if prev.Terminal() || prev == domain.StateUninitialized {
		s.mu.Unlock()
		s.logger.Debug("ignoring event", zap.String("event", string(ev.Kind)), zap.String("state", string(prev)))
		return
	}

	switch ev.Kind {
	case domain.EventQR:
		if prev != domain.StateReady {
			s.state = domain.StatePairing
		}
	case domain.EventAuthenticated:
		if prev != domain.StateReady {
			s.state = domain.StateAuthenticating
		}
	case domain.EventReady:
		s.state = domain.StateReady
		s.stopDeadline()
	case domain.EventDisconnected:
		if prev == domain.StateReady {
			s.state = domain.StateConnecting
		}
	case domain.EventLoggedOut:
		s.state = domain.StateLoggedOut
		s.stopDeadline()
	case domain.EventPairingExpired:
		if prev == domain.StateReady {
			s.mu.Unlock()
			return
		}
		s.state = domain.StatePairingExpired
		s.stopDeadline()
	}
	next := s.state
	ev.From = prev
	s.bus.Publish(ev)
	s.mu.Unlock()

	if prev != next {
		s.logger.Info("session state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.String("event", string(ev.Kind)))
	}
	if next == domain.StatePairingExpired {
		s.transport.Disconnect()
	}
}

// caller holds s.mu
func (s *Session) stopDeadline() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
}
