package p2pd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// DHTFindPeer resolves a peer's known addresses through the DHT.
func (c *Client) DHTFindPeer(ctx context.Context, p peer.ID) (PeerInfo, error) {
	resp, err := c.dhtOneShot(ctx, "dht_find_peer", &wire.DHTRequest{Type: wire.DHTRequestTypeFindPeer, Peer: p.Bytes()})
	if err != nil {
		return PeerInfo{}, err
	}
	if resp.Peer == nil {
		return PeerInfo{}, &ControlFailure{Op: "dht_find_peer", Err: fmt.Errorf("daemon returned no peer")}
	}
	return wirePeerToPeerInfo(resp.Peer)
}

// DHTFindPeersConnectedToPeer streams the peers the DHT reports as
// currently connected to p.
func (c *Client) DHTFindPeersConnectedToPeer(ctx context.Context, p peer.ID) ([]PeerInfo, error) {
	req := &wire.DHTRequest{Type: wire.DHTRequestTypeFindPeersConnectedToPeer, Peer: p.Bytes()}
	var out []PeerInfo
	err := c.dhtStream(ctx, "dht_find_peers_connected_to_peer", req, func(resp *wire.DHTResponse) error {
		if resp.Peer == nil {
			return nil
		}
		pi, err := wirePeerToPeerInfo(resp.Peer)
		if err != nil {
			return err
		}
		out = append(out, pi)
		return nil
	})
	return out, err
}

// DHTFindProviders streams the peers advertised as providers of cid.
func (c *Client) DHTFindProviders(ctx context.Context, cid []byte, count int32) ([]PeerInfo, error) {
	req := &wire.DHTRequest{Type: wire.DHTRequestTypeFindProviders, CID: cid, Count: count}
	var out []PeerInfo
	err := c.dhtStream(ctx, "dht_find_providers", req, func(resp *wire.DHTResponse) error {
		if resp.Peer == nil {
			return nil
		}
		pi, err := wirePeerToPeerInfo(resp.Peer)
		if err != nil {
			return err
		}
		out = append(out, pi)
		return nil
	})
	return out, err
}

// DHTGetClosestPeers streams the peers the DHT ranks closest to key.
func (c *Client) DHTGetClosestPeers(ctx context.Context, key []byte) ([]peer.ID, error) {
	req := &wire.DHTRequest{Type: wire.DHTRequestTypeGetClosestPeers, Key: key}
	var out []peer.ID
	err := c.dhtStream(ctx, "dht_get_closest_peers", req, func(resp *wire.DHTResponse) error {
		if resp.Value != nil {
			out = append(out, peer.FromBytes(resp.Value))
		}
		return nil
	})
	return out, err
}

// DHTGetPublicKey fetches a peer's public key through the DHT. The
// daemon carries it, marshaled, in the same Value field as GET_VALUE.
func (c *Client) DHTGetPublicKey(ctx context.Context, p peer.ID) (peer.PublicKey, error) {
	resp, err := c.dhtOneShot(ctx, "dht_get_public_key", &wire.DHTRequest{Type: wire.DHTRequestTypeGetPublicKey, Peer: p.Bytes()})
	if err != nil {
		return peer.PublicKey{}, err
	}
	var pk wire.PublicKey
	if err := pk.Unmarshal(resp.Value); err != nil {
		return peer.PublicKey{}, &ControlFailure{Op: "dht_get_public_key", Err: err}
	}
	return peer.PublicKey{Type: peer.KeyType(pk.Type), Data: pk.Data}, nil
}

// DHTGetValue fetches the value stored at key.
func (c *Client) DHTGetValue(ctx context.Context, key []byte) ([]byte, error) {
	resp, err := c.dhtOneShot(ctx, "dht_get_value", &wire.DHTRequest{Type: wire.DHTRequestTypeGetValue, Key: key})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// DHTSearchValue streams successively better values found for key as the
// query converges; the daemon, not this client, decides when to stop.
func (c *Client) DHTSearchValue(ctx context.Context, key []byte) ([][]byte, error) {
	req := &wire.DHTRequest{Type: wire.DHTRequestTypeSearchValue, Key: key}
	var out [][]byte
	err := c.dhtStream(ctx, "dht_search_value", req, func(resp *wire.DHTResponse) error {
		if resp.Value != nil {
			out = append(out, resp.Value)
		}
		return nil
	})
	return out, err
}

// DHTPutValue stores value at key.
func (c *Client) DHTPutValue(ctx context.Context, key, value []byte) error {
	_, err := c.dhtOneShot(ctx, "dht_put_value", &wire.DHTRequest{Type: wire.DHTRequestTypePutValue, Key: key, Value: value})
	return err
}

// DHTProvide announces this node as a provider of cid.
func (c *Client) DHTProvide(ctx context.Context, cid []byte) error {
	_, err := c.dhtOneShot(ctx, "dht_provide", &wire.DHTRequest{Type: wire.DHTRequestTypeProvide, CID: cid})
	return err
}

// dhtOneShot performs a DHT request that yields exactly one result frame,
// embedded directly in the daemon's Response envelope.
func (c *Client) dhtOneShot(ctx context.Context, op string, req *wire.DHTRequest) (*wire.DHTResponse, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	resp, err := c.dialer.Request(ctx, op, &wire.Request{Type: wire.RequestTypeDHT, DHT: req})
	if err != nil {
		return nil, toControlFailure(op, err)
	}
	if resp.DHT == nil {
		return nil, &ControlFailure{Op: op, Err: fmt.Errorf("daemon returned no DHT payload")}
	}
	return resp.DHT, nil
}

// dhtStream performs a DHT request whose results arrive as a sequence of
// DHTResponse frames on the opened connection, terminated by a frame of
// type DHTResponseTypeEnd or by the daemon closing the socket.
func (c *Client) dhtStream(ctx context.Context, op string, req *wire.DHTRequest, onFrame func(*wire.DHTResponse) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	resp, conn, err := c.dialer.Stream(ctx, op, &wire.Request{Type: wire.RequestTypeDHT, DHT: req})
	if err != nil {
		return toControlFailure(op, err)
	}
	defer conn.Close()

	if resp.DHT != nil {
		switch resp.DHT.Type {
		case wire.DHTResponseTypeEnd:
			return nil
		case wire.DHTResponseTypeValue:
			if err := onFrame(resp.DHT); err != nil {
				return &ControlFailure{Op: op, Err: err}
			}
		}
	}
	return readDHTFrames(conn, c.cfg.maxFrame, onFrame)
}

func readDHTFrames(conn net.Conn, maxFrame int, onFrame func(*wire.DHTResponse) error) error {
	dr := frame.NewDelimitedReader(conn, maxFrame)
	for {
		var f wire.DHTResponse
		if err := dr.Next(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if f.Type == wire.DHTResponseTypeEnd {
			return nil
		}
		if err := onFrame(&f); err != nil {
			return err
		}
	}
}
