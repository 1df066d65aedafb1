package driver

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 4

	// MaxMessageSize bounds what a length prefix may ask us to allocate.
	MaxMessageSize = 1 << 20
)

var (
	ErrTransportClosed  = errors.New("transport closed")
	ErrTruncatedMessage = errors.New("truncated message")
	ErrMessageTooLarge  = errors.New("message too large")
)

// byteOrder of the length prefix. The bots this talks to write a native
// uint32, which is little-endian on every host they run on.
var byteOrder = binary.LittleEndian

// Conn is a request/response channel of length-prefixed messages.
// It is not safe for concurrent use.
type Conn struct {
	r io.Reader
	w *bufio.Writer
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: r, w: bufio.NewWriter(w)}
}

// Send writes the prefix and payload and flushes before returning.
func (c *Conn) Send(payload []byte) error {
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}
	var hdr [headerSize]byte
	byteOrder.PutUint32(hdr[:], uint32(len(payload)))

	if _, err := c.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrTransportClosed, err)
	}
	if _, err := c.w.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %v", ErrTransportClosed, err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrTransportClosed, err)
	}
	return nil
}

// Receive blocks until one whole message has been read.
func (c *Conn) Receive() ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: header cut short", ErrTruncatedMessage)
		case errors.Is(err, io.EOF):
			return nil, ErrTransportClosed
		default:
			return nil, fmt.Errorf("%w: read header: %v", ErrTransportClosed, err)
		}
	}

	size := byteOrder.Uint32(hdr[:])
	if size > MaxMessageSize {
		return nil, fmt.Errorf("%w: prefix says %d bytes", ErrMessageTooLarge, size)
	}

	payload := make([]byte, size)
	if n, err := io.ReadFull(c.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedMessage, n, size)
		}
		return nil, fmt.Errorf("%w: read payload: %v", ErrTransportClosed, err)
	}
	return payload, nil
}
