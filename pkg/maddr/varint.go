package maddr

import "encoding/binary"

// appendUvarint appends the protobuf-style base-128 varint encoding of x.
func appendUvarint(buf []byte, x uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	return append(buf, tmp[:n]...)
}

// consumeUvarint reads a varint from the front of buf, returning the value
// and the number of bytes consumed, or n <= 0 on a malformed encoding
// (0 for a truncated buffer, negative for an overflowing value).
func consumeUvarint(buf []byte) (value uint64, n int) {
	return binary.Uvarint(buf)
}
