package p2pd

import (
	"github.com/dep2p/p2pd-client/pkg/maddr"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// PeerInfo pairs a peer with its known addresses, as returned by
// ListPeers and the DHT peer-discovery operations.
type PeerInfo struct {
	ID    peer.ID
	Addrs []maddr.Multiaddr
}

// StreamInfo prefixes every application stream, outbound or inbound.
type StreamInfo struct {
	Peer  peer.ID
	Addr  maddr.Multiaddr
	Proto string
}

// PSMessage is one pub/sub message delivered to a SubscriptionChannel.
type PSMessage struct {
	From      peer.ID
	Data      []byte
	Seqno     []byte
	TopicIDs  []string
	Signature []byte
	Key       []byte
}

// Stream is the duplex handed to a ProtocolHandler or returned by
// StreamOpen; satisfied by net.Conn.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ProtocolHandler consumes one inbound duplex stream. The stream is
// owned by the handler for the duration of the call; closing it is the
// handler's responsibility.
type ProtocolHandler func(info StreamInfo, stream Stream)
