package p2pd

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// Option configures a Client at construction time.
type Option func(*config)

type config struct {
	listenAddr  maddr.Multiaddr
	hasListen   bool
	maxFrame    int
	dialTimeout time.Duration
	logger      *slog.Logger
	clock       clock.Clock
}

func newConfig() *config {
	return &config{
		maxFrame:    frame.DefaultMaxFrameSize,
		dialTimeout: 10 * time.Second,
	}
}

// WithListenAddr overrides the Multiaddr the client's own listener binds
// to. When unset, Listen derives a default from the control address's
// family (a sibling Unix socket, or an ephemeral TCP port on the same
// host).
func WithListenAddr(addr maddr.Multiaddr) Option {
	return func(c *config) {
		c.listenAddr = addr
		c.hasListen = true
	}
}

// WithMaxFrameSize overrides frame.DefaultMaxFrameSize for every frame
// this client reads.
func WithMaxFrameSize(n int) Option {
	return func(c *config) { c.maxFrame = n }
}

// WithDialTimeout bounds how long dialing the control socket may take.
// Zero disables the timeout (the caller's context still applies).
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}

// WithLogger overrides the *slog.Logger every component logs through.
// Defaults to internal/logutil's per-subsystem loggers.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock injects a clock.Clock for the listener's accept-error backoff
// policy; intended for deterministic tests, not production use.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}
