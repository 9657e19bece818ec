// Package daemonlistener runs the client's own server socket: the
// daemon dials back into it for inbound application streams, each
// prefixed with a framed StreamInfo that is used to dispatch to the
// registered handler.
package daemonlistener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/registry"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// minBackoff/maxBackoff bound the accept-loop's retry delay after a
// transient Accept error (notably EMFILE/ENFILE, a file-descriptor
// exhaustion the daemon-dialing pattern can provoke under load).
const (
	minBackoff = 5 * time.Millisecond
	maxBackoff = 1 * time.Second
)

// Listener binds a single net.Listener (Unix or TCP, per the target
// Multiaddr's family) and dispatches every accepted connection's leading
// StreamInfo to the Registry.
type Listener struct {
	reg      *registry.Registry
	logger   *slog.Logger
	clock    clock.Clock
	maxFrame int

	mu       sync.Mutex
	ln       net.Listener
	addr     maddr.Multiaddr
	ownsSock bool // true if this process created the Unix socket file

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New returns a Listener dispatching to reg. clk defaults to the real
// wall clock; pass a fake clock.Clock in tests to make backoff
// deterministic.
func New(reg *registry.Registry, maxFrame int, logger *slog.Logger, clk clock.Clock) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Listener{reg: reg, logger: logger, clock: clk, maxFrame: maxFrame}
}

// Bind opens the listening socket described by addr. Calling Bind twice
// without an intervening Close is a no-op returning the already-bound
// address.
func (l *Listener) Bind(addr maddr.Multiaddr) (maddr.Multiaddr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return l.addr, nil
	}

	network, address, err := addr.DialArgs()
	if err != nil {
		return maddr.Empty, fmt.Errorf("daemonlistener: %w", err)
	}

	if network == "unix" {
		owns, err := l.prepareUnixSocket(address)
		if err != nil {
			return maddr.Empty, err
		}
		l.ownsSock = owns
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return maddr.Empty, fmt.Errorf("daemonlistener: listen %s %s: %w", network, address, err)
	}

	if network == "tcp" {
		tcpAddr, ok := ln.Addr().(*net.TCPAddr)
		if !ok {
			ln.Close()
			return maddr.Empty, fmt.Errorf("daemonlistener: unexpected listener address type %T", ln.Addr())
		}
		resolved, err := tcpMultiaddr(tcpAddr)
		if err != nil {
			ln.Close()
			return maddr.Empty, fmt.Errorf("daemonlistener: %w", err)
		}
		addr = resolved
	}

	l.ln = ln
	l.addr = addr
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	l.group = g
	g.Go(func() error {
		l.acceptLoop(gctx)
		return nil
	})
	return addr, nil
}

// tcpMultiaddr rebuilds the bound Multiaddr from the listener's own
// resolved net.Addr, so an OS-assigned port (":0") is advertised as the
// concrete port actually bound rather than echoed back as 0.
func tcpMultiaddr(a *net.TCPAddr) (maddr.Multiaddr, error) {
	if ip4 := a.IP.To4(); ip4 != nil {
		return maddr.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", ip4.String(), a.Port))
	}
	return maddr.NewMultiaddr(fmt.Sprintf("/ip6/%s/tcp/%d", a.IP.String(), a.Port))
}

// prepareUnixSocket probes a pre-existing socket file at path: if
// something is actively listening there, Bind refuses rather than
// stealing the address; if the file is stale (connect fails), it is
// removed so net.Listen can recreate it.
func (l *Listener) prepareUnixSocket(path string) (owns bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("daemonlistener: stat %s: %w", path, statErr)
	}

	conn, dialErr := net.DialTimeout("unix", path, 200*time.Millisecond)
	if dialErr == nil {
		conn.Close()
		return false, fmt.Errorf("daemonlistener: socket %s is already in use", path)
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("daemonlistener: remove stale socket %s: %w", path, err)
	}
	return true, nil
}

// acceptLoop runs for the lifetime of the listener, handing every
// accepted connection to a new goroutine for dispatch. It backs off with
// an injectable clock on transient errors (e.g. EMFILE) instead of
// spinning.
func (l *Listener) acceptLoop(ctx context.Context) {
	backoff := minBackoff
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() { //nolint:staticcheck // Temporary is still how transient accept errors are signaled
				l.logger.Warn("transient accept error, backing off", "err", err, "backoff", backoff)
				t := l.clock.Timer(backoff)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			l.logger.Info("listener accept loop exiting", "err", err)
			return
		}
		backoff = minBackoff
		l.group.Go(func() error {
			l.dispatch(conn)
			return nil
		})
	}
}

// dispatch reads the leading StreamInfo off conn and routes it to the
// registered handler, or closes conn on a miss. It never blocks the
// accept loop: it already runs on its own goroutine.
func (l *Listener) dispatch(conn net.Conn) {
	var info wire.StreamInfo
	if err := frame.ReadMessage(conn, &info, l.maxFrame); err != nil {
		l.logger.Warn("failed to read StreamInfo from inbound connection", "err", err)
		conn.Close()
		return
	}

	handler, ok := l.reg.Lookup(info.Proto)
	if !ok {
		l.logger.Debug("no handler registered, closing inbound stream", "proto", info.Proto)
		conn.Close()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("stream handler panicked", "proto", info.Proto, "panic", r)
		}
	}()
	handler(registry.StreamInfo{Peer: info.Peer, Addr: info.Addr, Proto: info.Proto}, conn)
}

// Close stops accepting, waits for in-flight dispatches to return their
// goroutines, and closes the listening socket. If this process created
// the Unix socket file, it is removed.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}

	if l.cancel != nil {
		l.cancel()
	}
	closeErr := l.ln.Close()
	l.group.Wait()

	if l.ownsSock {
		if network, address, err := l.addr.DialArgs(); err == nil && network == "unix" {
			os.Remove(address)
		}
	}

	l.ln = nil
	return closeErr
}

// Addr returns the bound Multiaddr, or maddr.Empty if Bind has not been
// called.
func (l *Listener) Addr() maddr.Multiaddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}
