package rpc

import (
	"fmt"
	"net"
	"sync"

	"github.com/reefward/chiller/iox"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/metrics"
	"github.com/reefward/chiller/wire"
)

// Handler processes one decoded request and returns the response value.
// payload is the raw JSON of the request message; peer is the remote
// address. A returned *ServiceError is reported to the caller under its
// kind; any other error is reported as KindInternal.
//
// Handlers run concurrently across sessions with no serialization. A
// handler touching a shared resource (hardware, a process instance) must
// carry its own mutual exclusion.
type Handler func(payload []byte, peer string) (any, error)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Host is the bind address: "127.0.0.1" for loopback-only, "0.0.0.0"
	// or empty for all interfaces.
	Host string
	// Port is the TCP port. Port 0 binds an ephemeral port (tests).
	Port int
	// Handler processes every decoded request. Required.
	Handler Handler
	// Logger receives session lifecycle entries. Required.
	Logger *log.Logger
	// Collector records served requests and handler errors. Optional.
	Collector *metrics.Collector
}

// Server turns a TCP listener into a request/response service. Each
// accepted connection gets an independent session goroutine reading one
// frame, dispatching it, and writing exactly one response frame: strict
// one-in-one-out per connection, no ordering across connections.
type Server struct {
	handler   Handler
	logger    *log.Logger
	collector *metrics.Collector

	ln net.Listener

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Listen binds the configured address and returns a Server ready to Serve.
func Listen(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("rpc: server requires a handler")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen %s: %w", addr, err)
	}

	return &Server{
		handler:   cfg.Handler,
		logger:    cfg.Logger,
		collector: cfg.Collector,
		ln:        ln,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Close is called. Blocking.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return fmt.Errorf("rpc: accept: %w", err)
		}

		if !s.track(conn) {
			// Shutdown raced the accept; drop the connection.
			iox.DiscardClose(conn)
			return nil
		}

		s.collector.IncSessionsOpened()
		s.wg.Add(1)
		go s.session(conn)
	}
}

// Close stops accepting, closes every live session's stream to unblock its
// read loop, and waits for all session goroutines to finish. No workers
// remain after Close returns.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.ln.Close()
	for conn := range s.conns {
		iox.DiscardClose(conn)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// session serves one connection until its stream closes. A forced close
// during shutdown surfaces as an ordinary closed stream, not an error.
func (s *Server) session(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)

	peer := conn.RemoteAddr().String()

	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			if !wire.IsClosed(err) {
				s.logger.Warn("session read failed", map[string]any{
					"peer":  peer,
					"error": err.Error(),
				})
			}
			return
		}

		resp := s.dispatch(payload, peer)

		if err := wire.EncodeMessage(conn, resp); err != nil {
			if !wire.IsClosed(err) {
				s.logger.Warn("session write failed", map[string]any{
					"peer":  peer,
					"error": err.Error(),
				})
			}
			return
		}
	}
}

// dispatch invokes the handler and wraps the outcome in an envelope.
// Handler failures become error envelopes; they never end the session.
func (s *Server) dispatch(payload []byte, peer string) Envelope {
	s.collector.IncRequestsServed()

	result, err := s.invoke(payload, peer)
	if err != nil {
		s.collector.IncHandlerErrors()
		s.logger.Warn("handler failed", map[string]any{
			"peer":  peer,
			"kind":  string(KindOf(err)),
			"error": err.Error(),
		})
		return errorEnvelope(err)
	}

	raw, err := wire.Marshal(result)
	if err != nil {
		s.collector.IncHandlerErrors()
		return errorEnvelope(fmt.Errorf("encode response: %w", err))
	}
	return Envelope{OK: true, Result: raw}
}

// invoke calls the handler, converting a panic into an ordinary error so a
// misbehaving handler cannot take the session down with it.
func (s *Server) invoke(payload []byte, peer string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(payload, peer)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// track registers a live connection; returns false if the server is
// already shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	iox.DiscardClose(conn)
}
