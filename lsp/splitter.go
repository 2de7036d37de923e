// Package lsp implements the byte-level framing used by language-server style
// JSON-RPC channels: every message is a Content-Length header block followed by
// exactly that many body bytes. The package splits an incoming byte stream into
// messages, frames outgoing bodies, and provides connection and server harnesses
// for running both directions over a TCP connection or a stdio pipe.
//
// Interpreting the body payload is out of scope; bodies are handed to the
// caller as raw bytes.
package lsp

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Errors returned by PullFrom. All of them can be tested with errors.Is even
// when additional context has been attached.
var (
	// ErrNoProcessor is returned when PullFrom is called before a message
	// processor has been registered. This is a caller bug; fix before retrying.
	ErrNoProcessor = errors.New("no message processor registered")
	// ErrMalformedHeader is returned when a header block is complete but its
	// Content-Length field is missing or does not parse as a nonnegative
	// base-10 integer. The error is terminal: resynchronizing on a corrupted
	// framed stream risks duplicate or spurious delivery, so the splitter
	// refuses to scan past a bad header. Discard the stream.
	ErrMalformedHeader = errors.New("malformed message header")
	// ErrBufferExhausted is returned when the buffer fills to capacity before
	// a message completes. The configured capacity cannot hold this message;
	// the error is terminal for the instance.
	ErrBufferExhausted = errors.New("buffer filled before message complete")
	// ErrStreamTruncated is returned when the source reports end of stream
	// while a partial message is still pending. The body can no longer be
	// completed, so this is always a data loss.
	ErrStreamTruncated = errors.New("stream ended with incomplete message pending")
)

// defaultBufferCapacity is the buffer size used when none is configured (1MB).
const defaultBufferCapacity = 1 << 20

// ReadFunc supplies raw bytes on demand. It reads up to len(p) bytes into p
// and returns the number of bytes read. End of stream is signaled by io.EOF,
// or by returning 0 bytes with a nil error. Short reads are normal, not
// exceptional: a source may legitimately return fewer bytes than len(p) on
// every call.
type ReadFunc func(p []byte) (int, error)

// MessageProcessor consumes one complete message. header covers everything
// from the message start through the blank-line terminator; body holds exactly
// the number of bytes the header declared. Both slices point into the
// splitter's internal buffer and are only valid for the duration of the call;
// copy them if they need to outlive it.
type MessageProcessor func(header, body []byte)

// MessageStreamSplitter incrementally splits a byte stream into
// Content-Length framed messages. It owns a fixed-capacity buffer, pulls bytes
// from a caller-supplied ReadFunc, and dispatches each complete message to the
// registered MessageProcessor in stream order. A message is never delivered
// partially or more than once.
//
// The splitter is single-caller: at most one PullFrom call may be in flight
// per instance, and there is no internal locking.
type MessageStreamSplitter struct {
	buffer    []byte
	filled    int // buffer[:filled] holds valid unconsumed data
	processor MessageProcessor

	// err latches terminal failures; once set, PullFrom refuses to resume
	// until Reset is called.
	err error

	messageCount    int
	largestBodySeen int
}

// NewMessageStreamSplitter creates a splitter with the given buffer capacity
// in bytes. The capacity is an upper bound on the size of a single message
// (header and body together) and is fixed for the lifetime of the instance.
// A non-positive capacity selects the default of 1MB.
func NewMessageStreamSplitter(capacity int) *MessageStreamSplitter {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &MessageStreamSplitter{buffer: make([]byte, capacity)}
}

// SetMessageProcessor registers the processor that receives complete messages.
// It must be called before the first PullFrom; calling it again replaces the
// previous processor.
func (s *MessageStreamSplitter) SetMessageProcessor(p MessageProcessor) {
	s.processor = p
}

// PullFrom performs one bounded unit of work: it dispatches every complete
// message already buffered, then issues at most one read to fetch more bytes
// and dispatches whatever that read completed.
//
// A nil return means progress was made but more data is needed; the caller
// should pull again. io.EOF means the stream ended cleanly between messages.
// Any other error is one of the sentinel errors above, or a wrapped read error
// from the source. After ErrMalformedHeader or ErrBufferExhausted the instance
// stays failed: further calls return the same error without reading.
func (s *MessageStreamSplitter) PullFrom(read ReadFunc) error {
	if s.processor == nil {
		return ErrNoProcessor
	}
	if s.err != nil {
		return s.err
	}

	// A single earlier oversized read may have delivered several messages at
	// once; drain them before touching the source again.
	if err := s.dispatchBuffered(); err != nil {
		return err
	}

	if s.filled == len(s.buffer) {
		// No complete message and no room to read more of this one.
		s.err = errors.Wrapf(ErrBufferExhausted, "capacity %d", len(s.buffer))
		return s.err
	}

	n, err := read(s.buffer[s.filled:])
	if n > 0 {
		s.filled += n
		return s.dispatchBuffered()
	}
	if err == nil || errors.Is(err, io.EOF) {
		if s.filled == 0 {
			return io.EOF
		}
		return errors.Wrapf(ErrStreamTruncated, "%d bytes pending", s.filled)
	}
	return errors.Wrap(err, "reading from source")
}

// Reset discards all buffered bytes and clears any latched terminal error so
// the instance can be attached to a fresh stream. Recovery is never implicit:
// a splitter that reported a malformed header or an exhausted buffer stays
// failed until the caller resets it.
func (s *MessageStreamSplitter) Reset() {
	s.filled = 0
	s.err = nil
}

// MessageCount returns the number of messages dispatched so far.
func (s *MessageStreamSplitter) MessageCount() int {
	return s.messageCount
}

// LargestBodySeen returns the size in bytes of the largest body dispatched so
// far. Useful for choosing a buffer capacity.
func (s *MessageStreamSplitter) LargestBodySeen() int {
	return s.largestBodySeen
}

// dispatchBuffered delivers every complete message currently in the buffer, in
// arrival order, then compacts the undispatched tail to the front so the free
// space stays contiguous.
func (s *MessageStreamSplitter) dispatchBuffered() error {
	pos := 0
	for {
		data := s.buffer[pos:s.filled]
		i := bytes.Index(data, headerSeparatorBytes)
		if i < 0 {
			break // header not complete yet
		}
		headerEnd := i + len(headerSeparatorBytes)
		header := data[:headerEnd]

		bodyLen, err := parseContentLength(header)
		if err != nil {
			s.err = err
			return s.err
		}
		if len(data) < headerEnd+bodyLen {
			break // body not fully buffered yet
		}

		s.processor(header, data[headerEnd:headerEnd+bodyLen])
		s.messageCount++
		if bodyLen > s.largestBodySeen {
			s.largestBodySeen = bodyLen
		}
		pos += headerEnd + bodyLen
	}
	if pos > 0 {
		s.filled = copy(s.buffer, s.buffer[pos:s.filled])
	}
	return nil
}

// parseContentLength extracts the declared body length from a complete header
// block. Only the line whose field name is exactly "Content-Length" is
// interpreted; all other lines pass through to the processor verbatim.
func parseContentLength(header []byte) (int, error) {
	for _, line := range bytes.Split(header, crlfBytes) {
		value, ok := bytes.CutPrefix(line, contentLengthPrefix)
		if !ok {
			continue
		}
		text := string(bytes.TrimSpace(value))
		n, err := strconv.ParseUint(text, 10, 31)
		if err != nil {
			return 0, errors.Wrapf(ErrMalformedHeader, "invalid Content-Length value %q", text)
		}
		return int(n), nil
	}
	return 0, errors.Wrapf(ErrMalformedHeader, "no Content-Length field in %q", header)
}
