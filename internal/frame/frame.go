// Package frame implements varint-length-delimited framing of protobuf
// messages over a byte-oriented duplex stream: write the base-128 varint
// length of the encoded message, then the message itself.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds how large a single frame's declared length
// may be before it is rejected; the daemon protocol pins no hard limit,
// so this is an implementation safeguard against a malicious or corrupt
// peer claiming an unbounded allocation.
const DefaultMaxFrameSize = 64 << 20

// ErrFrameTooLarge is returned when a frame's declared length exceeds the
// configured maximum.
var ErrFrameTooLarge = errors.New("frame: message exceeds maximum frame size")

// ErrMalformedVarint is returned when a length prefix does not terminate
// within the 10 bytes a 64-bit varint can occupy.
var ErrMalformedVarint = errors.New("frame: malformed varint length prefix")

// Marshaler is satisfied by every wire message type.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler is satisfied by every wire message type.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// WriteMessage serializes m and writes it to w as a single
// varint-length-prefixed frame.
func WriteMessage(w io.Writer, m Marshaler) error {
	b, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("frame: marshal: %w", err)
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return fmt.Errorf("frame: write length: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("frame: write body: %w", err)
	}
	return nil
}

// ReadMessage reads one varint-length-prefixed frame from r and unmarshals
// it into into. maxSize bounds the accepted frame length; pass
// DefaultMaxFrameSize for the recommended limit.
func ReadMessage(r io.Reader, into Unmarshaler, maxSize int) error {
	length, err := readVarintLength(r, maxSize)
	if err != nil {
		return err
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("frame: read body: %w", err)
		}
	}
	if err := into.Unmarshal(body); err != nil {
		return fmt.Errorf("frame: unmarshal: %w", err)
	}
	return nil
}

// readVarintLength reads a base-128 varint byte by byte, rejecting
// encodings that run past 10 bytes (the maximum for a 64-bit value) or
// that decode to a length beyond maxSize.
func readVarintLength(r io.Reader, maxSize int) (int, error) {
	var buf [1]byte
	var v uint64
	for i := 0; i < binary.MaxVarintLen64; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if i == 0 {
				return 0, err
			}
			return 0, fmt.Errorf("frame: read length: %w", err)
		}
		b := buf[0]
		v |= uint64(b&0x7f) << uint(7*i)
		if b < 0x80 {
			if v > uint64(maxSize) {
				return 0, ErrFrameTooLarge
			}
			return int(v), nil
		}
	}
	return 0, ErrMalformedVarint
}
