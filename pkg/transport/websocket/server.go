package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/ivankia/aeternal/internal/eventbus"
	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
	"github.com/ivankia/aeternal/pkg/subscription"
)

// ServerOptions represents websocket server options
type ServerOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	Registry        *subscription.Registry
	Logger          *logging.Logger
	EventBus        eventbus.Bus
	Client          ClientOptions
}

// ServerOption is a function that configures ServerOptions
type ServerOption func(*ServerOptions)

// WithRegistry sets the subscription registry for the server
func WithRegistry(registry *subscription.Registry) ServerOption {
	return func(o *ServerOptions) {
		o.Registry = registry
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *logging.Logger) ServerOption {
	return func(o *ServerOptions) {
		o.Logger = logger
	}
}

// WithEventBus sets the event bus for the server
func WithEventBus(eventBus eventbus.Bus) ServerOption {
	return func(o *ServerOptions) {
		o.EventBus = eventBus
	}
}

// WithCheckOrigin sets the check origin function
func WithCheckOrigin(checkOrigin func(r *http.Request) bool) ServerOption {
	return func(o *ServerOptions) {
		o.CheckOrigin = checkOrigin
	}
}

// Server accepts websocket connections and runs one Session per connection.
type Server struct {
	upgrader websocket.Upgrader
	registry *subscription.Registry
	logger   *logging.Logger
	eventBus eventbus.Bus
	options  ServerOptions
}

// NewServer creates a new websocket server
func NewServer(opts ...ServerOption) *Server {
	options := ServerOptions{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins by default (configure for production)
		},
		Client: DefaultClientOptions(),
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  options.ReadBufferSize,
			WriteBufferSize: options.WriteBufferSize,
			CheckOrigin:     options.CheckOrigin,
		},
		registry: options.Registry,
		logger:   options.Logger,
		eventBus: options.EventBus,
		options:  options,
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade error",
			"error", err,
			"remote_addr", r.RemoteAddr,
		)
		return
	}

	clientID := domain.ClientID(xid.New().String())
	client := NewClient(clientID, conn, s.logger, s.options.Client)

	session := NewSession(client, s.registry, s.logger, s.eventBus)
	client.Receive(session.HandleMessage)

	s.registry.Attach(client)
	client.Start()

	if err := session.Open(r.Context()); err != nil {
		s.logger.Error("failed to open session",
			"error", err,
			"client_id", string(clientID),
		)
		session.Close()
		client.Close()
		return
	}

	if s.eventBus != nil {
		event := eventbus.NewEvent(
			eventbus.EventClientConnected,
			"websocket-server",
			map[string]string{
				"client_id":   string(clientID),
				"remote_addr": r.RemoteAddr,
			},
		)
		s.eventBus.PublishAsync(event)
	}

	s.logger.Info("client connected",
		"client_id", string(clientID),
		"remote_addr", r.RemoteAddr,
	)

	// Wait for the connection to go away, then tear the session down. The
	// teardown is idempotent, so racing an in-flight unsubscribe is fine.
	<-client.Context().Done()
	session.Close()

	s.logger.Info("client disconnected", "client_id", string(clientID))
}
