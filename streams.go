package p2pd

import (
	"context"
	"fmt"

	"github.com/dep2p/p2pd-client/internal/registry"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// StreamOpen opens an outbound stream to peer speaking any one of
// protos. The returned Stream is live; the leading StreamInfo frame has
// already been consumed to populate the returned StreamInfo.
func (c *Client) StreamOpen(ctx context.Context, p peer.ID, protos []string) (StreamInfo, Stream, error) {
	if err := c.checkOpen(); err != nil {
		return StreamInfo{}, nil, err
	}
	if p.IsEmpty() {
		return StreamInfo{}, nil, &InvalidArgument{Arg: "peer", Err: peer.ErrEmptyID}
	}
	if len(protos) == 0 {
		return StreamInfo{}, nil, &InvalidArgument{Arg: "protos", Err: fmt.Errorf("at least one protocol is required")}
	}

	req := &wire.Request{
		Type:       wire.RequestTypeStreamOpen,
		StreamOpen: &wire.StreamOpenRequest{Peer: p.Bytes(), Protos: protos},
	}
	resp, conn, err := c.dialer.Stream(ctx, "stream_open", req)
	if err != nil {
		return StreamInfo{}, nil, toControlFailure("stream_open", err)
	}
	if resp.Stream == nil {
		conn.Close()
		return StreamInfo{}, nil, &ControlFailure{Op: "stream_open", Err: fmt.Errorf("daemon returned no stream info")}
	}
	info, err := wireStreamInfoToStreamInfo(resp.Stream)
	if err != nil {
		conn.Close()
		return StreamInfo{}, nil, &ControlFailure{Op: "stream_open", Err: err}
	}
	return info, conn, nil
}

// StreamHandler registers handler as the receiver of inbound streams
// opened with protocol proto. Binding the listener (idempotent) happens
// automatically on first call. A second registration for the same proto
// replaces the previous handler and is re-sent to the daemon.
func (c *Client) StreamHandler(ctx context.Context, proto string, handler ProtocolHandler) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	listenAddr, err := c.ensureListening()
	if err != nil {
		return err
	}

	req := &wire.Request{
		Type:          wire.RequestTypeStreamHandler,
		StreamHandler: &wire.StreamHandlerRequest{Addr: listenAddr.Bytes(), Protos: []string{proto}},
	}
	if _, err := c.dialer.Request(ctx, "stream_handler", req); err != nil {
		return toControlFailure("stream_handler", err)
	}

	c.reg.Set(proto, adaptHandler(handler))
	return nil
}

func adaptHandler(h ProtocolHandler) registry.StreamHandler {
	return func(info registry.StreamInfo, stream registry.Stream) {
		addr, err := maddr.NewMultiaddrBytes(info.Addr)
		if err != nil {
			addr = maddr.Empty
		}
		h(StreamInfo{Peer: peer.FromBytes(info.Peer), Addr: addr, Proto: info.Proto}, stream)
	}
}
