package lsp

import (
	"testing"

	"github.com/pkg/errors"
)

func TestOnMessageOption(t *testing.T) {
	called := false
	handler := func(*Conn, []byte, []byte) { called = true }
	opt := OnMessageOption(handler)

	var opts options
	opt(&opts)

	if opts.handler == nil {
		t.Fatal("handler not set")
	}
	opts.handler(nil, nil, nil)
	if !called {
		t.Error("stored handler is not the one provided")
	}
}

func TestBufferCapacityOption(t *testing.T) {
	opt := BufferCapacityOption(4096)

	var opts options
	opt(&opts)

	if opts.bufferCapacity != 4096 {
		t.Errorf("bufferCapacity = %d, want 4096", opts.bufferCapacity)
	}
}

func TestQueueSizeOption(t *testing.T) {
	opt := QueueSizeOption(100)

	var opts options
	opt(&opts)

	if opts.queueSize != 100 {
		t.Errorf("queueSize = %d, want 100", opts.queueSize)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestCheckOptions_Defaults(t *testing.T) {
	opts := options{handler: func(*Conn, []byte, []byte) {}}

	if err := checkOptions(&opts); err != nil {
		t.Fatalf("checkOptions failed: %v", err)
	}

	if opts.bufferCapacity != defaultBufferCapacity {
		t.Errorf("bufferCapacity = %d, want %d", opts.bufferCapacity, defaultBufferCapacity)
	}
	if opts.queueSize != defaultQueueSize {
		t.Errorf("queueSize = %d, want %d", opts.queueSize, defaultQueueSize)
	}
	if opts.logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestCheckOptions_MissingHandler(t *testing.T) {
	var opts options

	if err := checkOptions(&opts); !errors.Is(err, ErrInvalidHandler) {
		t.Errorf("checkOptions = %v, want ErrInvalidHandler", err)
	}
}
