// Package peer defines the PeerID value type shared across the client's
// public surface and wire codec.
//
// A PeerID is the multihash of a peer's public key, treated here as an
// opaque byte string: this package does not parse or validate multihash
// structure, only carries the bytes and renders them as base58 for display,
// matching the daemon's own treatment of peer identifiers on the wire.
package peer

import (
	"errors"

	"github.com/mr-tron/base58/base58"
)

// ErrEmptyID is returned by ID.Validate for the zero-length peer ID.
var ErrEmptyID = errors.New("peer: empty peer ID")

// ID is an immutable, comparable identifier for a libp2p peer.
//
// Two IDs compare equal iff their underlying byte sequences are equal.
type ID struct {
	b string
}

// Empty is the zero value ID, equivalent to an ID built from nil bytes.
var Empty ID

// FromBytes constructs an ID from raw multihash bytes. The bytes are
// copied; it is safe to reuse or mutate the caller's slice afterward.
func FromBytes(b []byte) ID {
	if len(b) == 0 {
		return Empty
	}
	return ID{b: string(b)}
}

// Decode parses the base58 text form produced by String.
func Decode(s string) (ID, error) {
	if s == "" {
		return Empty, ErrEmptyID
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return Empty, err
	}
	return FromBytes(raw), nil
}

// Bytes returns the raw multihash bytes. Callers must not mutate the
// returned slice.
func (id ID) Bytes() []byte {
	if id.b == "" {
		return nil
	}
	return []byte(id.b)
}

// String renders the canonical base58 display form.
func (id ID) String() string {
	if id.b == "" {
		return ""
	}
	return base58.Encode([]byte(id.b))
}

// Equal reports whether two IDs carry the same bytes.
func (id ID) Equal(other ID) bool {
	return id.b == other.b
}

// IsEmpty reports whether id carries no bytes.
func (id ID) IsEmpty() bool {
	return id.b == ""
}

// Validate rejects the empty ID; a non-empty ID is otherwise opaque and
// always valid from this package's point of view.
func (id ID) Validate() error {
	if id.IsEmpty() {
		return ErrEmptyID
	}
	return nil
}
