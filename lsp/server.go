package lsp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Server accepts TCP connections and runs each of them as a framed message
// Conn. Every accepted connection gets its own splitter instance; streams are
// never multiplexed through a shared one.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout. When the
// context is canceled, the server waits up to this duration before closing the
// listener, giving connections in flight time to finish. Default is 0
// (immediate shutdown). Call Close() to bypass a pending timeout.
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// NewServer creates a server bound to the specified TCP address.
// Returns an error if the address cannot be bound.
func NewServer(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		logger:      defaultLogger(),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections until the context is canceled or an unrecoverable
// error occurs. Each accepted connection is wrapped in a Conn configured with
// connOpts and run on its own goroutine; OnMessageOption is therefore
// required. Connection failures are logged, not returned: one corrupt stream
// must not stop the listener.
func (s *Server) Serve(ctx context.Context, connOpts ...Option) error {
	// Fail fast on unusable connection options instead of at first accept.
	var probe options
	for _, o := range connOpts {
		o(&probe)
	}
	if err := checkOptions(&probe); err != nil {
		return err
	}

	s.logger.Info("server started", "addr", s.listener.Addr())

	go func() {
		<-ctx.Done()

		// Wait for the shutdown timeout if configured, but allow early exit
		// via Close().
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept.
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		tcpConn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", tcpConn.RemoteAddr())
		_ = tcpConn.SetNoDelay(true)

		conn, err := NewConn(tcpConn, connOpts...)
		if err != nil {
			// Options were validated above; this cannot happen.
			tcpConn.Close()
			return err
		}

		go func() {
			if err := conn.Run(ctx); err != nil {
				s.logger.Error("connection failed", "addr", conn.Addr(), "error", err)
			}
		}()
	}
}

// Close stops the server by closing the underlying listener. If a shutdown
// timeout is configured, Close() bypasses the remaining timeout. Any blocked
// Accept calls will return with an error. Connections already running are
// stopped by their own context.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	select {
	case s.shutdownNow <- struct{}{}:
	default:
		// Channel already has a signal or no one is listening.
	}

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
