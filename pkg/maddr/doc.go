// Package maddr implements a small, self-contained subset of the
// multiaddr format used to describe control-socket, listener, and peer
// addresses exchanged with the daemon: /ip4, /ip6, /tcp, /udp, /unix, and
// /p2p components, plus the varint length-prefixing their values need.
package maddr
