package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
	"github.com/ivankia/aeternal/pkg/errors"
)

// Client implements domain.Client over a gorilla websocket connection. Each
// connection owns a buffered send channel drained by a single write pump, so
// concurrent senders never interleave frames and a slow reader backs up its
// own queue only.
type Client struct {
	id       domain.ClientID
	conn     *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *logging.Logger
	options  ClientOptions
	sendChan chan []byte
	handler  domain.MessageHandler
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
}

// NewClient creates a client for an upgraded connection.
func NewClient(id domain.ClientID, conn *websocket.Conn, logger *logging.Logger, options ClientOptions) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:       id,
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.WithFields(map[string]any{"client_id": string(id)}),
		options:  options,
		sendChan: make(chan []byte, options.SendBufferSize),
	}
}

// ID implements domain.Client
func (c *Client) ID() domain.ClientID {
	return c.id
}

// Send implements domain.Client. The message is queued for the write pump.
// When the queue is full the wait is bounded by ctx, so a dispatch worker
// spends at most the caller's send timeout on one stalled consumer.
func (c *Client) Send(ctx context.Context, message []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return domain.ErrConnectionClosed
	}
	c.mu.RUnlock()

	select {
	case c.sendChan <- message:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "SEND_TIMEOUT", "send buffer full")
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	}
}

// Receive implements domain.Client
func (c *Client) Receive(handler domain.MessageHandler) error {
	c.handler = handler
	return nil
}

// Close implements domain.Client. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.logger.Debug("closing client connection")

	// The send channel stays open; senders and the write pump bail out on
	// the cancelled context instead, so a racing Send cannot hit a closed
	// channel.
	c.cancel()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug("error closing websocket connection", "error", err)
	}

	return nil
}

// Context implements domain.Client
func (c *Client) Context() context.Context {
	return c.ctx
}

// Start starts the client read and write pumps
func (c *Client) Start() {
	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
}

// readPump pumps messages from the websocket connection to the handler. A
// handler error means the connection is unusable and terminates the pump.
func (c *Client) readPump() {
	defer c.wg.Done()
	defer c.Close()

	c.conn.SetReadLimit(c.options.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			messageType, message, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error("websocket read error", "error", err)
				}
				return
			}

			if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
				continue
			}

			if c.handler != nil {
				if err := c.handler(message); err != nil {
					c.logger.Error("message handler error", "error", err)
					return
				}
			}
		}
	}
}

// writePump pumps queued messages to the websocket connection
func (c *Client) writePump() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error("websocket ping error", "error", err)
				return
			}
		}
	}
}
