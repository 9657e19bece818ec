package maddr

import "errors"

// ErrProtocolNotFound is returned by ValueForProtocol when the address
// carries no component of the requested protocol.
var ErrProtocolNotFound = errors.New("maddr: protocol not present")
