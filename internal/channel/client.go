package channel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/termbridge/internal/protocol"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = 1 << 20

	backoffInitial = 500 * time.Millisecond
	backoffMax     = 15 * time.Second
)

// Client is a Channel over a websocket. It dials in the background, redials
// with capped exponential backoff until Close, and fires the synthetic
// connect/disconnect events on every transport transition. Handlers run on
// a single goroutine in delivery order.
type Client struct {
	url   string
	token string
	log   *slog.Logger

	reg Registry

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(url, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:    url,
		token:  token,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the connect loop. Handlers registered before Start observe
// the first connect event.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	go c.run()
}

func (c *Client) On(event string, fn Handler) *Subscription {
	return c.reg.Add(event, fn)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends one event envelope. While disconnected it returns
// ErrNotConnected and the payload is dropped, never queued.
func (c *Client) Emit(event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	started := c.started
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	if started {
		<-c.done
	}
	return nil
}

func (c *Client) run() {
	defer close(c.done)

	backoff := backoffInitial
	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, err := c.dial()
		if err != nil {
			c.log.Debug("channel dial failed", "url", c.url, "error", err)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
			continue
		}
		backoff = backoffInitial

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.reg.Dispatch(protocol.EventConnect, nil)

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.reg.Dispatch(protocol.EventDisconnect, nil)
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.Debug("channel connection dropped", "error", err)
			}
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Debug("channel dropping malformed message", "error", err)
			continue
		}
		c.reg.Dispatch(env.Event, env.Data)
	}
}
