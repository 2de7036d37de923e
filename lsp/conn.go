package lsp

import (
	"context"
	"io"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Errors returned by connection operations.
var (
	// ErrInvalidHandler is returned when no message handler is provided.
	ErrInvalidHandler = errors.New("invalid message handler")
	// ErrConnClosed is returned when operating on a closed connection.
	ErrConnClosed = errors.New("connection closed")
	// ErrQueueFull is returned when the outbound queue is full and cannot
	// accept more messages. This signals backpressure: the peer is not
	// consuming messages fast enough. Either drop the message, or use
	// WriteBlocking to wait for queue space.
	ErrQueueFull = errors.New("outbound queue full")
)

// MessageHandler is called for each complete inbound message. header and body
// are views into the connection's receive buffer and are only valid for the
// duration of the call; copy them if they need to outlive it. The handler runs
// synchronously on the read loop, so a slow handler delays further reads.
type MessageHandler func(conn *Conn, header, body []byte)

// Conn runs Content-Length framed traffic over a raw byte stream such as a TCP
// connection or a stdio pipe. Inbound bytes are split into messages by a
// dedicated MessageStreamSplitter and dispatched to the configured handler;
// outbound bodies are framed with WriteMessage from a queue drained by the
// write loop.
type Conn struct {
	raw      io.ReadWriteCloser
	splitter *MessageStreamSplitter
	logger   Logger

	opts options

	outbound chan []byte
	closed   atomic.Bool
	cancel   context.CancelFunc
}

// NewConn wraps the given byte stream in a connection. It applies the provided
// options and validates them before returning; the handler option is required.
func NewConn(raw io.ReadWriteCloser, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	c := &Conn{
		raw:      raw,
		splitter: NewMessageStreamSplitter(opts.bufferCapacity),
		logger:   opts.logger,
		opts:     opts,
		outbound: make(chan []byte, opts.queueSize),
	}
	c.splitter.SetMessageProcessor(func(header, body []byte) {
		opts.handler(c, header, body)
	})

	return c, nil
}

// Run starts the connection's read and write loops and blocks until the
// stream ends, the context is canceled, or an error occurs. The underlying
// stream is closed when Run returns. A clean end of stream and context
// cancellation both return nil; splitter failures and write errors are
// returned as-is.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Info("connection open", "addr", c.Addr())

	ctx, c.cancel = context.WithCancel(ctx)
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	// The read loop blocks inside raw.Read with no deadline; closing the
	// stream is the only way to unblock it once the other loop fails or the
	// caller cancels.
	go func() {
		<-child.Done()
		c.closeConn()
	}()

	err := group.Wait()
	c.closeConn()

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
		return err
	}
	c.logger.Info("connection closed", "addr", c.Addr())
	return nil
}

// Close shuts the connection down. Safe to call multiple times and from any
// goroutine; a Run call in progress returns nil.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	if c.cancel != nil {
		c.cancel()
	}
	return c.raw.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Write queues body for sending without blocking (fire-and-forget). The body
// is framed with a Content-Length header by the write loop; the slice is owned
// by the connection once Write returns nil and must not be modified.
//
// Returns ErrQueueFull if the outbound queue is full and ErrConnClosed if the
// connection is closed. For guaranteed queueing, use WriteBlocking.
func (c *Conn) Write(body []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	select {
	case c.outbound <- body:
		return nil
	default:
		return ErrQueueFull
	}
}

// WriteBlocking queues body for sending, blocking until there is queue space
// or the context is canceled. Ownership of the slice passes to the connection
// on a nil return, as with Write.
func (c *Conn) WriteBlocking(ctx context.Context, body []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	select {
	case c.outbound <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the remote address when the underlying stream is a net.Conn,
// nil otherwise (stdio pipes have no address).
func (c *Conn) Addr() net.Addr {
	if nc, ok := c.raw.(net.Conn); ok {
		return nc.RemoteAddr()
	}
	return nil
}

// MessageCount returns the number of inbound messages dispatched so far.
func (c *Conn) MessageCount() int {
	return c.splitter.MessageCount()
}

// readLoop pulls from the splitter until the stream ends or fails. Every
// splitter failure is terminal, so the first error tears the connection down;
// there is no resynchronization on a corrupted framed stream.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.splitter.PullFrom(c.raw.Read); err != nil {
				if c.closed.Load() {
					// Shutdown closed the stream under a blocked read.
					return context.Canceled
				}
				c.logger.Debug("read error", "addr", c.Addr(), "error", err)
				return err
			}
		}
	}
}

// writeLoop frames and sends queued bodies until the context is canceled.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case body := <-c.outbound:
			if err := WriteMessage(c.raw, body); err != nil {
				if c.closed.Load() {
					return context.Canceled
				}
				c.logger.Debug("write error", "addr", c.Addr(), "error", err)
				return err
			}
		}
	}
}

// closeConn marks the connection as closed and closes the underlying stream.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	c.raw.Close()
}
