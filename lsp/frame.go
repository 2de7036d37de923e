package lsp

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// Wire format, shared by the splitter and WriteMessage:
//
//	Content-Length: <decimal nonnegative integer>\r\n
//	\r\n
//	<body bytes, exactly that many, no trailing delimiter>
//
// The header block ends at the first blank line. Additional header lines are
// carried verbatim but not interpreted.
const (
	crlf                = "\r\n"
	headerBodySeparator = crlf + crlf
	contentLengthField  = "Content-Length"
)

var (
	crlfBytes            = []byte(crlf)
	headerSeparatorBytes = []byte(headerBodySeparator)
	contentLengthPrefix  = []byte(contentLengthField + ":")
)

// WriteMessage frames body with a Content-Length header and writes it to w.
// The frame is assembled in a pooled buffer and handed to w in a single Write
// call, so concurrent writers sharing w never interleave partial frames.
func WriteMessage(w io.Writer, body []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	fmt.Fprintf(buf, "%s: %d%s", contentLengthField, len(body), headerBodySeparator)
	buf.Write(body)

	if _, err := w.Write(buf.B); err != nil {
		return errors.Wrap(err, "writing message")
	}
	return nil
}
