// Package control implements the daemon control channel: opening a fresh
// connection per request, writing a framed Request, and reading back a
// framed Response (or, for streaming operations, the Response envelope
// plus the still-open connection for the caller to keep reading).
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// ErrDaemonError marks a Response carrying ResponseTypeError; the Err
// field of the *ControlError returned by Request/Stream wraps it together
// with the daemon's message.
var ErrDaemonError = errors.New("control: daemon returned an error response")

// ControlError is returned by Request/Stream when the attempt to reach
// the daemon, or the daemon's own reply, indicates failure.
type ControlError struct {
	Op  string
	Err error
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("control: %s: %v", e.Op, e.Err)
}

func (e *ControlError) Unwrap() error { return e.Err }

// Dialer owns the daemon's control Multiaddr and opens a fresh net.Conn
// to it for every request; the control protocol has no notion of a
// persistent session.
type Dialer struct {
	addr        maddr.Multiaddr
	dialTimeout time.Duration
	maxFrame    int
	logger      *slog.Logger
}

// New returns a Dialer targeting addr. maxFrame bounds accepted response
// frame sizes; dialTimeout bounds the TCP/Unix connect step (zero means
// no timeout beyond ctx).
func New(addr maddr.Multiaddr, maxFrame int, dialTimeout time.Duration, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{addr: addr, dialTimeout: dialTimeout, maxFrame: maxFrame, logger: logger}
}

func (d *Dialer) dial(ctx context.Context) (net.Conn, error) {
	network, address, err := d.addr.DialArgs()
	if err != nil {
		return nil, fmt.Errorf("control: resolve control address: %w", err)
	}
	nd := net.Dialer{Timeout: d.dialTimeout}
	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s %s: %w", network, address, err)
	}
	return conn, nil
}

// Request opens a fresh connection, writes req, reads one Response, and
// closes the connection. If the daemon replied with ResponseTypeError,
// the returned error is a *ControlError wrapping ErrDaemonError with the
// daemon's message.
func (d *Dialer) Request(ctx context.Context, op string, req *wire.Request) (*wire.Response, error) {
	conn, err := d.dial(ctx)
	if err != nil {
		return nil, &ControlError{Op: op, Err: err}
	}
	defer conn.Close()

	resp, err := d.roundTrip(conn, op, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream opens a fresh connection, writes req, reads one Response
// envelope, and — if the response is OK — returns it along with the
// still-open connection. The caller owns the connection from that point:
// for a stream_open it becomes the application duplex; for a DHT
// streaming query it is handed to a frame.DelimitedReader.
func (d *Dialer) Stream(ctx context.Context, op string, req *wire.Request) (*wire.Response, net.Conn, error) {
	conn, err := d.dial(ctx)
	if err != nil {
		return nil, nil, &ControlError{Op: op, Err: err}
	}

	resp, err := d.roundTrip(conn, op, req)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return resp, conn, nil
}

func (d *Dialer) roundTrip(conn net.Conn, op string, req *wire.Request) (*wire.Response, error) {
	if err := frame.WriteMessage(conn, req); err != nil {
		return nil, &ControlError{Op: op, Err: err}
	}

	var resp wire.Response
	if err := frame.ReadMessage(conn, &resp, d.maxFrame); err != nil {
		return nil, &ControlError{Op: op, Err: err}
	}

	if resp.Kind == wire.ResponseTypeError {
		msg := "unknown error"
		if resp.Error != nil {
			msg = resp.Error.Msg
		}
		d.logger.Warn("daemon returned error response", "op", op, "msg", msg)
		return nil, &ControlError{Op: op, Err: fmt.Errorf("%w: %s", ErrDaemonError, msg)}
	}
	return &resp, nil
}
