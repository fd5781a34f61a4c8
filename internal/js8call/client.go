// JS8Call TCP client. A two-state machine: Disconnected attempts a blocking
// connect each tick, Connected reads one buffer's worth of newline-delimited
// JSON frames. Any read failure or peer close drops back to Disconnected and
// the loop retries on the next tick. The link is never fatal.
package js8call

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-js8call-bridge/internal/metrics"
)

// Handler receives every decoded event, including types the bridge ignores.
type Handler func(Event)

// Client is the radio-link state machine. One Run loop owns the connection;
// Close may be called from another goroutine to unblock a pending read
// during shutdown.
type Client struct {
	addr    string
	poll    time.Duration
	bufSize int
	handler Handler

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	closed    bool
}

// NewClient builds a client for the JS8Call API at addr. poll is the sleep
// between loop ticks, bufSize the fixed read buffer size.
func NewClient(addr string, poll time.Duration, bufSize int, handler Handler) *Client {
	return &Client{
		addr:    addr,
		poll:    poll,
		bufSize: bufSize,
		handler: handler,
	}
}

// Connected reports the current link state.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run drives the connect/read loop until ctx is cancelled or Close is
// called. Each iteration either attempts a connection or processes one read,
// then sleeps the poll interval.
func (c *Client) Run(ctx context.Context) {
	buf := make([]byte, c.bufSize)
	for {
		if c.isClosed() {
			return
		}
		if !c.Connected() {
			c.connect()
		} else {
			c.readOnce(buf)
		}

		select {
		case <-ctx.Done():
			c.Close()
			return
		case <-time.After(c.poll):
		}
	}
}

// Close shuts the socket if open and stops the Run loop. Safe to call more
// than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			log.Warn().Err(err).Msg("js8call: close socket")
		}
		c.conn = nil
	}
	c.connected = false
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// connect performs one blocking dial attempt. Failure logs and stays
// Disconnected; the loop retries next tick.
func (c *Client) connect() {
	log.Info().Str("addr", c.addr).Msg("js8call: connecting")
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		log.Error().Err(err).Str("addr", c.addr).Msg("js8call: connect failed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connected = true
	log.Info().Str("addr", c.addr).Msg("js8call: connected")
}

// readOnce performs one blocking read and decodes whatever complete lines
// arrived. A failed or empty read transitions back to Disconnected.
func (c *Client) readOnce(buf []byte) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Warn().Msg("js8call: connection lost")
		} else {
			log.Error().Err(err).Msg("js8call: read failed")
		}
		c.disconnect()
		return
	}

	c.decode(string(buf[:n]))
}

// decode splits a read into lines and JSON-decodes each one. A bad line is
// logged and skipped; it never aborts the rest of the batch.
func (c *Client) decode(data string) {
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			metrics.FramesDropped.Inc()
			log.Error().Err(err).Msg("js8call: failed to parse frame")
			continue
		}
		metrics.FramesRead.Inc()
		if c.handler != nil {
			c.handler(ev)
		}
	}
}

// disconnect drops back to the Disconnected state, releasing the socket.
func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.connected {
		metrics.Reconnects.Inc()
	}
	c.connected = false
}
