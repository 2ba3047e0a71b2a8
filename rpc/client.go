package rpc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/reefward/chiller/iox"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/wire"
)

// ErrUnreachable is returned when a call cannot obtain a working
// connection: the cached one reported closed and the single fresh
// connection attempt failed too.
var ErrUnreachable = errors.New("rpc: server unreachable")

// DefaultDialTimeout bounds a single connection attempt.
const DefaultDialTimeout = 5 * time.Second

// Client presents a blocking request/response call backed by one reusable
// connection.
//
// Concurrency: at most one request is in flight per client; concurrent
// callers are serialized by an internal mutex spanning connect, send, and
// receive.
//
// Reconnection: when no connection is cached, or the cached one reports
// closed mid-request, the client discards it and dials exactly once. If
// the dial fails the call returns ErrUnreachable and no connection stays
// cached, so the next call dials afresh instead of reusing a broken
// stream. If the dial succeeds the original request is retried exactly
// once; that retry is not repeated.
type Client struct {
	addr        string
	dialTimeout time.Duration
	collector   *metrics.Collector

	mu   sync.Mutex
	conn net.Conn
}

// ClientOption adjusts client construction.
type ClientOption func(*Client)

// WithDialTimeout overrides DefaultDialTimeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithCollector records call and reconnect counters.
func WithCollector(collector *metrics.Collector) ClientOption {
	return func(c *Client) { c.collector = collector }
}

// NewClient creates a client for the given "host:port" address. No
// connection is made until the first Call.
func NewClient(addr string, opts ...ClientOption) *Client {
	c := &Client{addr: addr, dialTimeout: DefaultDialTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends req and decodes the response result into out (skipped when
// out is nil). A not-ok envelope returns a *ServiceError; transport
// failures return ErrUnreachable or a wire error.
func (c *Client) Call(req any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collector.IncCallsIssued()

	env, err := c.callLocked(req)
	if err != nil {
		c.collector.IncCallsFailed()
		return err
	}

	if !env.OK {
		return &ServiceError{Kind: env.ErrorKind, Message: env.Message}
	}
	if out != nil && len(env.Result) > 0 {
		if err := wire.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("rpc: decode result: %w", err)
		}
	}
	return nil
}

// Close discards the cached connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// callLocked performs one request under the client mutex, applying the
// single-reconnect policy.
func (c *Client) callLocked(req any) (Envelope, error) {
	if c.conn == nil {
		if err := c.dial(); err != nil {
			return Envelope{}, err
		}
		// Fresh connection: a closed signal here means the server went
		// away between dial and use; no second attempt.
		env, err := c.roundTrip(req)
		if err != nil {
			c.drop()
			return Envelope{}, err
		}
		return env, nil
	}

	env, err := c.roundTrip(req)
	if err == nil {
		return env, nil
	}
	if !wire.IsClosed(err) {
		c.drop()
		return Envelope{}, err
	}

	// Cached connection reported closed: discard, dial once, retry once.
	c.drop()
	c.collector.IncReconnects()
	if err := c.dial(); err != nil {
		return Envelope{}, err
	}
	env, err = c.roundTrip(req)
	if err != nil {
		c.drop()
		return Envelope{}, err
	}
	return env, nil
}

// roundTrip writes one request frame and reads one response frame on the
// cached connection.
func (c *Client) roundTrip(req any) (Envelope, error) {
	if err := wire.EncodeMessage(c.conn, req); err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := wire.DecodeMessage(c.conn, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (c *Client) dial() error {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, c.addr, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) drop() {
	if c.conn != nil {
		iox.DiscardClose(c.conn)
		c.conn = nil
	}
}
