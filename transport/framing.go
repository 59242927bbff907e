package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
)

var (
	ErrFrameTooLarge        = errors.New("frame exceeds maximum size")
	ErrMissingContentLength = errors.New("frame header has no Content-Length")
)

// DefaultMaxFrameBytes bounds the body size accepted by a FrameReader.
const DefaultMaxFrameBytes = 32 << 20

// Frame is one base protocol message: a header block followed by a body of
// Content-Length bytes.
type Frame struct {
	// ContentType is empty when the header omitted it.
	ContentType string
	Body        []byte
}

// FrameReader reads frames from a byte stream.
type FrameReader struct {
	r   *textproto.Reader
	max int
}

func NewFrameReader(r io.Reader, maxBytes int) *FrameReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &FrameReader{r: textproto.NewReader(bufio.NewReader(r)), max: maxBytes}
}

// ReadFrame returns the next frame. It returns io.EOF if the stream ends
// cleanly between frames and io.ErrUnexpectedEOF if it ends inside one.
func (fr *FrameReader) ReadFrame() (*Frame, error) {
	header, err := fr.r.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) && len(header) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	cl := header.Get("Content-Length")
	if cl == "" {
		return nil, ErrMissingContentLength
	}
	n, err := strconv.Atoi(strings.TrimSpace(cl))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", cl)
	}
	if n > fr.max {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, n, fr.max)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(fr.r.R, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Frame{ContentType: header.Get("Content-Type"), Body: body}, nil
}

// WriteFrame writes body with a Content-Length header, and a Content-Type
// header when contentType is not empty.
func WriteFrame(w io.Writer, contentType string, body []byte) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Content-Length: %d\r\n", len(body))
	if contentType != "" {
		fmt.Fprintf(bw, "Content-Type: %s\r\n", contentType)
	}
	bw.WriteString("\r\n")
	bw.Write(body)
	return bw.Flush()
}
