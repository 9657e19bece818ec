package p2pd

import (
	"context"

	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// ConnMgrTagPeer attaches a weighted tag to peer, influencing which
// connections the daemon's connection manager prefers to keep under
// pressure.
func (c *Client) ConnMgrTagPeer(ctx context.Context, p peer.ID, tag string, weight int) error {
	return c.connMgrRequest(ctx, "connmgr_tag_peer", &wire.ConnManagerRequest{
		Type:   wire.ConnManagerRequestTypeTagPeer,
		Peer:   p.Bytes(),
		Tag:    tag,
		Weight: int32(weight),
	})
}

// ConnMgrUntagPeer removes a previously attached tag from peer.
func (c *Client) ConnMgrUntagPeer(ctx context.Context, p peer.ID, tag string) error {
	return c.connMgrRequest(ctx, "connmgr_untag_peer", &wire.ConnManagerRequest{
		Type: wire.ConnManagerRequestTypeUntagPeer,
		Peer: p.Bytes(),
		Tag:  tag,
	})
}

// ConnMgrTrim asks the daemon to prune low-value connections immediately,
// rather than waiting for its own periodic sweep.
func (c *Client) ConnMgrTrim(ctx context.Context) error {
	return c.connMgrRequest(ctx, "connmgr_trim", &wire.ConnManagerRequest{Type: wire.ConnManagerRequestTypeTrim})
}

func (c *Client) connMgrRequest(ctx context.Context, op string, req *wire.ConnManagerRequest) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, err := c.dialer.Request(ctx, op, &wire.Request{Type: wire.RequestTypeConnManager, ConnManager: req})
	if err != nil {
		return toControlFailure(op, err)
	}
	return nil
}
