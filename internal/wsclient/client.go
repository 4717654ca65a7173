// Package wsclient carries the engine's message stream over a websocket.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

const defaultFrameBuffer = 256

// Options configures Dial.
type Options struct {
	URL              string
	Origin           string
	HandshakeTimeout time.Duration
	// FrameBuffer bounds inbound frames waiting for the engine.
	FrameBuffer int
	Logger      pslog.Logger
}

// Client owns one websocket connection. Frames are read on a background
// goroutine and delivered in arrival order; Send is safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	log    pslog.Logger
	frames chan []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}

	errMu sync.Mutex
	err   error
}

// Dial connects to the server and starts reading frames.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	endpoint, err := schema.NormalizeServerURL(opts.URL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	buffer := opts.FrameBuffer
	if buffer <= 0 {
		buffer = defaultFrameBuffer
	}
	dialer := *websocket.DefaultDialer
	if opts.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = opts.HandshakeTimeout
	}
	header := http.Header{}
	if opts.Origin != "" {
		header.Set("Origin", opts.Origin)
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	c := &Client{
		conn:   conn,
		log:    logger.With("url", endpoint),
		frames: make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
	c.log.Info("wsclient connected")
	go c.readLoop()
	return c, nil
}

// Frames returns the inbound frame stream. It is closed when the connection ends.
func (c *Client) Frames() <-chan []byte {
	return c.frames
}

// Send writes one outbound message as a text frame.
func (c *Client) Send(ctx context.Context, req protocol.Request) error {
	select {
	case <-c.closed:
		return schema.ErrNotConnected
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(req.Text)); err != nil {
		return fmt.Errorf("wsclient send: %w", err)
	}
	c.log.Trace("wsclient sent", "text", req.Text)
	return nil
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Err returns the error that ended the read loop, if any. A normal close
// reports nil.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.frames)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *Client) finish(err error) {
	select {
	case <-c.closed:
		c.log.Debug("wsclient read loop stopped")
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info("wsclient closed by server")
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.log.Warn("wsclient closed", "code", closeErr.Code, "text", closeErr.Text)
	} else {
		c.log.Warn("wsclient read failed", "err", err)
	}
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}
