package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ivankia/aeternal/internal/eventbus"
	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
	"github.com/ivankia/aeternal/pkg/errors"
	"github.com/ivankia/aeternal/pkg/subscription"
)

// ackPayload is the literal greeting sent before any JSON traffic.
const ackPayload = "connected"

// Session states.
const (
	stateConnected int32 = iota
	stateActive
	stateClosed
)

// Session translates one connection's lifecycle into registry calls: open
// sends the acknowledgement, inbound messages mutate subscriptions and echo
// the client's full list back, close purges the client from the registry.
type Session struct {
	client   domain.Client
	registry *subscription.Registry
	logger   *logging.Logger
	eventBus eventbus.Bus
	state    atomic.Int32
	teardown sync.Once
}

// NewSession creates a session for a freshly opened connection.
func NewSession(client domain.Client, registry *subscription.Registry, logger *logging.Logger, eventBus eventbus.Bus) *Session {
	s := &Session{
		client:   client,
		registry: registry,
		logger:   logger,
		eventBus: eventBus,
	}
	s.state.Store(stateConnected)
	return s
}

// Open sends the acknowledgement payload and activates the session.
func (s *Session) Open(ctx context.Context) error {
	if err := s.client.Send(ctx, []byte(ackPayload)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTransport, "ACK_FAILED", "failed to send acknowledgement")
	}

	s.state.CompareAndSwap(stateConnected, stateActive)
	return nil
}

// HandleMessage processes one inbound message. Undecodable messages are a
// connection-level failure; the transport closes the connection on a non-nil
// return. Decodable requests the session has no use for are a no-op, and
// every handled message is answered with the client's current subscription
// list.
func (s *Session) HandleMessage(message []byte) error {
	if s.state.Load() != stateActive {
		return domain.ErrSessionClosed
	}

	msg, err := domain.DecodeMessage(message)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeProtocol, "DECODE_ERROR", "failed to decode message")
	}

	s.route(msg)

	return s.reply()
}

// route applies a decoded request to the registry.
func (s *Session) route(msg *domain.Message) {
	id := s.client.ID()

	switch msg.Op {
	case domain.OpSubscribe:
		if msg.Payload == domain.CategoryObject {
			s.registry.SubscribeObject(id, msg.Target)
		} else {
			s.registry.Subscribe(msg.Payload, id)
		}

	case domain.OpUnsubscribe:
		if msg.Payload == domain.CategoryObject {
			s.registry.UnsubscribeObject(id, msg.Target)
		} else {
			s.registry.Unsubscribe(msg.Payload, id)
		}
	}

	s.logger.Debug("handled subscription request",
		"client_id", string(id),
		"op", msg.Op.String(),
		"payload", msg.Payload.String(),
	)
}

// reply sends the client its current full subscription list.
func (s *Session) reply() error {
	subs := s.registry.Subscriptions(s.client.ID())

	data, err := json.Marshal(subs)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "MARSHAL_ERROR", "failed to marshal subscription list")
	}

	return s.client.Send(s.client.Context(), data)
}

// Close tears the session down: the client is purged from the registry
// exactly once and the session stops processing messages. Callable from any
// state, any number of times.
func (s *Session) Close() {
	s.teardown.Do(func() {
		s.state.Store(stateClosed)
		s.registry.Disconnect(s.client.ID())

		if s.eventBus != nil {
			event := eventbus.NewEvent(
				eventbus.EventClientDisconnected,
				"websocket-session",
				map[string]string{
					"client_id": string(s.client.ID()),
				},
			)
			s.eventBus.PublishAsync(event)
		}
	})
}
