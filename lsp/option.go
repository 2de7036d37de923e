package lsp

// options holds the configuration for a connection.
type options struct {
	handler MessageHandler
	logger  Logger

	// bufferCapacity bounds the size of a single inbound message; it becomes
	// the splitter's buffer capacity.
	bufferCapacity int
	// queueSize is the capacity of the outbound message channel.
	queueSize int
}

// defaultQueueSize is the default capacity of the outbound channel.
const defaultQueueSize = 1

// Option is a function that configures connection options.
type Option func(*options)

// OnMessageOption returns an Option that sets the message handler.
// The handler is required and is invoked for each received message.
func OnMessageOption(h MessageHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// BufferCapacityOption returns an Option that sets the inbound buffer capacity
// in bytes. A message larger than this capacity terminates the connection with
// ErrBufferExhausted. The default is 1MB.
func BufferCapacityOption(capacity int) Option {
	return func(o *options) {
		o.bufferCapacity = capacity
	}
}

// QueueSizeOption returns an Option that sets the capacity of the outbound
// message queue. A larger queue allows more messages to be queued with Write
// before it reports backpressure.
func QueueSizeOption(size int) Option {
	return func(o *options) {
		o.queueSize = size
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.handler == nil {
		return ErrInvalidHandler
	}

	if opts.bufferCapacity <= 0 {
		opts.bufferCapacity = defaultBufferCapacity
	}

	if opts.queueSize <= 0 {
		opts.queueSize = defaultQueueSize
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}
