package lsp

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestWriteMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "simple body",
			body: "foo",
			want: "Content-Length: 3\r\n\r\nfoo",
		},
		{
			name: "empty body",
			body: "",
			want: "Content-Length: 0\r\n\r\n",
		},
		{
			name: "body with embedded separator",
			body: "{\"x\":\"\r\n\r\n\"}",
			want: "Content-Length: 12\r\n\r\n{\"x\":\"\r\n\r\n\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteMessage(&buf, []byte(tt.body)); err != nil {
				t.Fatalf("WriteMessage failed: %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteMessage wrote %q, want %q", got, tt.want)
			}
		})
	}
}

// failingWriter always fails, to exercise error propagation.
type failingWriter struct {
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestWriteMessage_WriteError(t *testing.T) {
	sink := &failingWriter{err: errors.New("pipe broke")}

	err := WriteMessage(sink, []byte("foo"))
	if !errors.Is(err, sink.err) {
		t.Fatalf("WriteMessage = %v, want wrapped %v", err, sink.err)
	}
}

// Frames produced by WriteMessage must come back out of the splitter intact.
func TestWriteMessage_RoundTrip(t *testing.T) {
	// The third body embeds the header terminator; the splitter must skip
	// body bytes by declared length, never by scanning.
	bodies := []string{"foo", "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, "a\r\n\r\nb"}

	var buf bytes.Buffer
	for _, body := range bodies {
		if err := WriteMessage(&buf, []byte(body)); err != nil {
			t.Fatalf("WriteMessage failed: %v", err)
		}
	}

	s := NewMessageStreamSplitter(4096)
	msgs := collect(s)

	if err := pullAll(s, (&streamSimulator{content: buf.Bytes()}).Read); !errors.Is(err, io.EOF) {
		t.Fatalf("pull = %v, want io.EOF", err)
	}
	if len(*msgs) != len(bodies) {
		t.Fatalf("got %d messages, want %d", len(*msgs), len(bodies))
	}
	for i, want := range bodies {
		if got := (*msgs)[i].body; got != want {
			t.Errorf("message %d body = %q, want %q", i, got, want)
		}
	}
}
