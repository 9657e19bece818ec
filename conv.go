package p2pd

import (
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

func maddrsToBytes(addrs []maddr.Multiaddr) [][]byte {
	out := make([][]byte, len(addrs))
	for i, a := range addrs {
		out[i] = a.Bytes()
	}
	return out
}

func bytesToMaddrs(raw [][]byte) ([]maddr.Multiaddr, error) {
	out := make([]maddr.Multiaddr, 0, len(raw))
	for _, b := range raw {
		m, err := maddr.NewMultiaddrBytes(b)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func wirePeerToPeerInfo(p *wire.Peer) (PeerInfo, error) {
	addrs, err := bytesToMaddrs(p.Addrs)
	if err != nil {
		return PeerInfo{}, err
	}
	return PeerInfo{ID: peer.FromBytes(p.ID), Addrs: addrs}, nil
}

func wirePeersToPeerInfos(ps []*wire.Peer) ([]PeerInfo, error) {
	out := make([]PeerInfo, 0, len(ps))
	for _, p := range ps {
		pi, err := wirePeerToPeerInfo(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pi)
	}
	return out, nil
}

func wireStreamInfoToStreamInfo(si *wire.StreamInfo) (StreamInfo, error) {
	addr, err := maddr.NewMultiaddrBytes(si.Addr)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{Peer: peer.FromBytes(si.Peer), Addr: addr, Proto: si.Proto}, nil
}

func wirePSMessageToPSMessage(m *wire.PSMessage) PSMessage {
	return PSMessage{
		From:      peer.FromBytes(m.From),
		Data:      m.Data,
		Seqno:     m.Seqno,
		TopicIDs:  m.TopicIDs,
		Signature: m.Signature,
		Key:       m.Key,
	}
}

func bytesToPeerIDs(raw [][]byte) []peer.ID {
	out := make([]peer.ID, len(raw))
	for i, b := range raw {
		out[i] = peer.FromBytes(b)
	}
	return out
}
