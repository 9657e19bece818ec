package frame

import (
	"errors"
	"fmt"
	"io"
)

// DelimitedReader yields successive frames of a fixed message type off a
// duplex stream, used for the DHT streaming queries and the pub/sub
// subscription socket. It stops at EOF (the daemon closed the socket) or
// when the caller's own termination check (e.g. DHTResponse.Type == END)
// decides to stop calling Next.
type DelimitedReader struct {
	r       io.Reader
	maxSize int
}

// NewDelimitedReader wraps r, rejecting any frame whose declared length
// exceeds maxSize.
func NewDelimitedReader(r io.Reader, maxSize int) *DelimitedReader {
	return &DelimitedReader{r: r, maxSize: maxSize}
}

// Next reads the next frame into into. It returns io.EOF, unwrapped, when
// the stream ends cleanly between frames; any other error indicates a
// frame that began but could not be completed or parsed.
func (d *DelimitedReader) Next(into Unmarshaler) error {
	err := ReadMessage(d.r, into, d.maxSize)
	if err == nil || err == io.EOF {
		return err
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("frame: stream ended mid-frame (%v): %w", err, io.ErrUnexpectedEOF)
	}
	return err
}
