package hub

import (
	"LingoChat/internal/event"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Client struct {
	ID      string
	conn    *websocket.Conn
	manager *Hub
	egress  chan event.WsEvent
	inbound chan event.WsEvent

	// cancel or stop goroutine
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	inboundBufSize     = 64                     // per-connection queue of events awaiting dispatch
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound messages
	kickOnFull         = true                   // when true, disconnect client when egress is full
	unregisterTimeout  = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout = 500 * time.Millisecond // timeout for queueing an inbound event
)

// RegisterClient wraps conn in a Client, records its session and starts its
// read, write and dispatch loops.
func RegisterClient(conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)

	client := &Client{
		ID:      uuid.New().String(),
		conn:    conn,
		manager: h,
		egress:  make(chan event.WsEvent, sendBufSize),
		inbound: make(chan event.WsEvent, inboundBufSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	h.addClient(client)
	go client.ReadMessages()
	go client.WriteMessages()
	go client.dispatch()

	return client
}

func (c *Client) ReadMessages() {
	defer c.leave()

	c.conn.SetReadLimit(int64(maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	logger := c.manager.logger.With(zap.String("client_id", c.ID))
	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			):
				logger.Debug("client disconnected")
			case errors.As(err, &ne) && ne.Timeout():
				logger.Info("client timed out, closing connection")
			case c.ctx.Err() != nil:
				// closed by the hub
			default:
				if isMalformed(err) {
					c.sendError("malformed event")
					continue
				}
				logger.Warn("error reading from client", zap.Error(err))
			}
			return
		}

		// queue for this connection's dispatcher; events of one connection are
		// handled strictly in order
		select {
		case c.inbound <- ev:
		case <-time.After(inboundSendTimeout):
			logger.Warn("inbound queue full, dropping client")
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.manager.logger.Debug("write failed", zap.String("client_id", c.ID), zap.Error(err))
				c.leave()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.leave()
				return
			}
		}
	}
}

// dispatch handles this connection's events one at a time.
func (c *Client) dispatch() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.inbound:
			c.manager.handleEvent(c, ev)
		}
	}
}

// isMalformed reports a frame that arrived intact but is not a valid event.
func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues ev for delivery. A client whose buffer stays full is
// disconnected when kickOnFull is set.
func (c *Client) Send(ev event.WsEvent) {
	if c.IsClosed() {
		return
	}

	select {
	case c.egress <- ev:
	case <-c.ctx.Done():
	case <-time.After(sendTimeout):
		c.manager.logger.Warn("egress full", zap.String("client_id", c.ID))
		if kickOnFull {
			c.leave()
		}
	}
}

func (c *Client) sendError(message string) {
	ev, err := event.New(event.EventError, message)
	if err != nil {
		return
	}
	c.Send(ev)
}

// leave asks the hub to drop this client.
func (c *Client) leave() {
	select {
	case c.manager.unregister <- c:
	case <-time.After(unregisterTimeout):
		c.manager.logger.Warn("failed to unregister client", zap.String("client_id", c.ID))
	}
	c.Close()
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	return c.ctx.Err() != nil
}
