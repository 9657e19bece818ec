package p2pd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/p2pd-client/internal/control"
	"github.com/dep2p/p2pd-client/internal/daemonlistener"
	"github.com/dep2p/p2pd-client/internal/logutil"
	"github.com/dep2p/p2pd-client/internal/registry"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// Client is the user-facing handle to one daemon connection. It has no
// global state: every Client dials its own control address and owns its
// own listener and subscriptions.
type Client struct {
	controlAddr maddr.Multiaddr
	dialer      *control.Dialer
	reg         *registry.Registry
	ln          *daemonlistener.Listener
	cfg         *config
	logger      *slog.Logger

	mu          sync.Mutex
	closed      bool
	listening   bool
	subsCancels []func()
}

// New builds a Client targeting the daemon's control socket at
// controlAddr. The listener is not bound until the first call to Listen
// or StreamHandler.
func New(controlAddr maddr.Multiaddr, opts ...Option) (*Client, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = logutil.Logger("client")
	}

	reg := registry.New()
	dialer := control.New(controlAddr, cfg.maxFrame, cfg.dialTimeout, pick(cfg.logger, logutil.Logger("control")))
	ln := daemonlistener.New(reg, cfg.maxFrame, pick(cfg.logger, logutil.Logger("listener")), cfg.clock)

	return &Client{controlAddr: controlAddr, dialer: dialer, reg: reg, ln: ln, cfg: cfg, logger: logger}, nil
}

func pick(preferred, fallback *slog.Logger) *slog.Logger {
	if preferred != nil {
		return preferred
	}
	return fallback
}

// Listen binds the client's own listener socket. It is normally
// unnecessary to call directly: StreamHandler binds on first use.
// Exposed for callers that want to publish their listen address before
// registering any handler. Calling it a second time returns
// ErrAlreadyStarted rather than silently succeeding.
func (c *Client) Listen() (maddr.Multiaddr, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return maddr.Empty, ErrClosed
	}
	if c.listening {
		c.mu.Unlock()
		return maddr.Empty, ErrAlreadyStarted
	}
	c.listening = true
	c.mu.Unlock()
	return c.bind()
}

// ensureListening binds the listener on first use; every later call
// returns the already-bound address (waiting for a bind still in
// progress). Used internally by StreamHandler, which needs a listener
// bound without caring whether a caller already bound it explicitly via
// Listen.
func (c *Client) ensureListening() (maddr.Multiaddr, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return maddr.Empty, ErrClosed
	}
	c.listening = true
	c.mu.Unlock()
	return c.bind()
}

func (c *Client) bind() (maddr.Multiaddr, error) {
	addr := c.cfg.listenAddr
	if !c.cfg.hasListen {
		var err error
		addr, err = defaultListenAddr(c.controlAddr)
		if err != nil {
			return maddr.Empty, fmt.Errorf("p2pd: derive default listen address: %w", err)
		}
	}
	return c.ln.Bind(addr)
}

// Close stops the listener, cancels every open subscription, and closes
// their sockets. The returned error is the listener's close error;
// cancelling subscriptions reports no errors. The client is unusable
// afterward regardless of whether Close itself returns an error.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancels := c.subsCancels
	c.subsCancels = nil
	c.mu.Unlock()

	var err error
	for _, cancel := range cancels {
		cancel()
	}
	if lnErr := c.ln.Close(); lnErr != nil {
		err = multierr.Append(err, lnErr)
	}
	return err
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────
// identify / connect / list_peers / disconnect
// ────────────────────────────────────────────────────────────────────────

// Identify returns the daemon's own peer ID and listen addresses.
func (c *Client) Identify(ctx context.Context) (peer.ID, []maddr.Multiaddr, error) {
	if err := c.checkOpen(); err != nil {
		return peer.Empty, nil, err
	}
	resp, err := c.dialer.Request(ctx, "identify", &wire.Request{Type: wire.RequestTypeIdentify})
	if err != nil {
		return peer.Empty, nil, toControlFailure("identify", err)
	}
	if resp.Identify == nil {
		return peer.Empty, nil, &ControlFailure{Op: "identify", Err: fmt.Errorf("daemon returned no identify payload")}
	}
	addrs, err := bytesToMaddrs(resp.Identify.Addrs)
	if err != nil {
		return peer.Empty, nil, &ControlFailure{Op: "identify", Err: err}
	}
	return peer.FromBytes(resp.Identify.ID), addrs, nil
}

// Connect asks the daemon to dial peer at the given addresses.
func (c *Client) Connect(ctx context.Context, p peer.ID, addrs []maddr.Multiaddr) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if p.IsEmpty() {
		return &InvalidArgument{Arg: "peer", Err: peer.ErrEmptyID}
	}
	req := &wire.Request{
		Type: wire.RequestTypeConnect,
		Connect: &wire.ConnectRequest{
			Peer:  p.Bytes(),
			Addrs: maddrsToBytes(addrs),
		},
	}
	_, err := c.dialer.Request(ctx, "connect", req)
	if err != nil {
		return toControlFailure("connect", err)
	}
	return nil
}

// ListPeers returns the peers the daemon is currently connected to.
func (c *Client) ListPeers(ctx context.Context) ([]PeerInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	resp, err := c.dialer.Request(ctx, "list_peers", &wire.Request{Type: wire.RequestTypeListPeers})
	if err != nil {
		return nil, toControlFailure("list_peers", err)
	}
	peers, err := wirePeersToPeerInfos(resp.Peers)
	if err != nil {
		return nil, &ControlFailure{Op: "list_peers", Err: err}
	}
	return peers, nil
}

// Disconnect asks the daemon to drop its connection to peer.
func (c *Client) Disconnect(ctx context.Context, p peer.ID) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if p.IsEmpty() {
		return &InvalidArgument{Arg: "peer", Err: peer.ErrEmptyID}
	}
	req := &wire.Request{Type: wire.RequestTypeDisconnect, Disconnect: &wire.DisconnectRequest{Peer: p.Bytes()}}
	if _, err := c.dialer.Request(ctx, "disconnect", req); err != nil {
		return toControlFailure("disconnect", err)
	}
	return nil
}

func toControlFailure(op string, err error) *ControlFailure {
	return &ControlFailure{Op: op, Err: err}
}
