package p2pd

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// PubSubGetTopics lists the topics this node is currently subscribed to.
func (c *Client) PubSubGetTopics(ctx context.Context) ([]string, error) {
	resp, err := c.pubsubRequest(ctx, "pubsub_get_topics", &wire.PSRequest{Type: wire.PSRequestTypeGetTopics})
	if err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// PubSubListPeers lists the peers subscribed to topic that this node
// knows about.
func (c *Client) PubSubListPeers(ctx context.Context, topic string) ([]peer.ID, error) {
	resp, err := c.pubsubRequest(ctx, "pubsub_list_peers", &wire.PSRequest{Type: wire.PSRequestTypeListPeers, Topic: topic})
	if err != nil {
		return nil, err
	}
	return bytesToPeerIDs(resp.PeerIDs), nil
}

// PubSubPublish publishes data on topic.
func (c *Client) PubSubPublish(ctx context.Context, topic string, data []byte) error {
	_, err := c.pubsubRequest(ctx, "pubsub_publish", &wire.PSRequest{Type: wire.PSRequestTypePublish, Topic: topic, Data: data})
	return err
}

func (c *Client) pubsubRequest(ctx context.Context, op string, req *wire.PSRequest) (*wire.PSResponse, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	resp, err := c.dialer.Request(ctx, op, &wire.Request{Type: wire.RequestTypePubsub, Pubsub: req})
	if err != nil {
		return nil, toControlFailure(op, err)
	}
	if resp.Pubsub == nil {
		return &wire.PSResponse{}, nil
	}
	return resp.Pubsub, nil
}

// SubscriptionChannel delivers the messages of one active pubsub
// subscription. Messages arrives in the order the daemon forwards them;
// it is closed, together with the underlying socket, when Cancel is
// called or the daemon ends the subscription. Err reports why the
// channel closed, nil for a caller-initiated Cancel.
type SubscriptionChannel struct {
	Messages <-chan PSMessage

	mu     sync.Mutex
	err    error
	conn   net.Conn
	cancel func()
}

// Cancel ends the subscription and closes its socket. Safe to call more
// than once.
func (s *SubscriptionChannel) Cancel() {
	s.cancel()
}

// Err returns the reason the subscription ended, once Messages has been
// drained and closed. It is nil if Cancel ended the subscription, or if
// the subscription is still active.
func (s *SubscriptionChannel) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *SubscriptionChannel) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// PubSubSubscribe subscribes to topic and returns a channel of incoming
// messages. The subscription runs until its Cancel is called, the
// Client is closed, or the daemon ends the stream.
func (c *Client) PubSubSubscribe(ctx context.Context, topic string) (*SubscriptionChannel, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	req := &wire.Request{Type: wire.RequestTypePubsub, Pubsub: &wire.PSRequest{Type: wire.PSRequestTypeSubscribe, Topic: topic}}
	_, conn, err := c.dialer.Stream(ctx, "pubsub_subscribe", req)
	if err != nil {
		return nil, toControlFailure("pubsub_subscribe", err)
	}

	msgs := make(chan PSMessage, 32)
	var once sync.Once
	sub := &SubscriptionChannel{Messages: msgs, conn: conn}
	sub.cancel = func() {
		once.Do(func() {
			conn.Close()
		})
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.cancel()
		return nil, ErrClosed
	}
	c.subsCancels = append(c.subsCancels, sub.cancel)
	c.mu.Unlock()

	go c.readSubscription(conn, msgs, sub)
	return sub, nil
}

func (c *Client) readSubscription(conn net.Conn, msgs chan PSMessage, sub *SubscriptionChannel) {
	defer close(msgs)
	dr := frame.NewDelimitedReader(conn, c.cfg.maxFrame)
	for {
		var m wire.PSMessage
		if err := dr.Next(&m); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				sub.setErr(err)
			}
			return
		}
		msgs <- wirePSMessageToPSMessage(&m)
	}
}
