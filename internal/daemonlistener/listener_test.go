package daemonlistener

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/registry"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

func tempSocketAddr(t *testing.T) maddr.Multiaddr {
	t.Helper()
	path := t.TempDir() + "/listener.sock"
	m, err := maddr.NewMultiaddr("/unix" + path)
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	return m
}

func TestBindAcceptDispatch(t *testing.T) {
	reg := registry.New()
	received := make(chan registry.StreamInfo, 1)
	reg.Set("/echo/1.0", func(info registry.StreamInfo, s registry.Stream) {
		received <- info
		buf := make([]byte, 2)
		s.Read(buf)
		s.Close()
	})

	l := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	addr := tempSocketAddr(t)
	bound, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer l.Close()

	network, address, err := bound.DialArgs()
	if err != nil {
		t.Fatalf("DialArgs: %v", err)
	}
	conn, err := net.Dial(network, address)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	info := &wire.StreamInfo{Peer: []byte("pid-b"), Addr: []byte("/ip4/127.0.0.1/tcp/7"), Proto: "/echo/1.0"}
	if err := frame.WriteMessage(conn, info); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	conn.Write([]byte("hi"))

	select {
	case got := <-received:
		if got.Proto != "/echo/1.0" || string(got.Peer) != "pid-b" {
			t.Fatalf("unexpected StreamInfo: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func TestMissDispatchClosesStream(t *testing.T) {
	reg := registry.New()
	l := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	addr := tempSocketAddr(t)
	bound, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer l.Close()

	network, address, _ := bound.DialArgs()
	conn, err := net.Dial(network, address)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	info := &wire.StreamInfo{Proto: "/unregistered/1.0"}
	frame.WriteMessage(conn, info)

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(buf)
	if err == nil {
		t.Fatal("expected the daemon-side connection to be closed on a registry miss")
	}
}

func TestBindIsIdempotent(t *testing.T) {
	reg := registry.New()
	l := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	addr := tempSocketAddr(t)

	a1, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	a2, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("second Bind: %v", err)
	}
	if !a1.Equal(a2) {
		t.Fatalf("expected idempotent Bind to return the same address")
	}
	l.Close()
}

func TestCloseRemovesOwnedSocket(t *testing.T) {
	reg := registry.New()
	l := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	addr := tempSocketAddr(t)
	bound, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	_, path, _ := bound.DialArgs()

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected socket file to be removed, stat err = %v", err)
	}
}

func TestBindResolvesOSAssignedTCPPort(t *testing.T) {
	reg := registry.New()
	received := make(chan registry.StreamInfo, 1)
	reg.Set("/echo/1.0", func(info registry.StreamInfo, s registry.Stream) {
		received <- info
		s.Close()
	})

	l := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	addr, err := maddr.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	bound, err := l.Bind(addr)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer l.Close()

	if port, err := bound.ValueForProtocol(maddr.P_TCP); err != nil || port == "0" {
		t.Fatalf("expected a concrete resolved port, got %q (err=%v)", port, err)
	}

	network, address, err := bound.DialArgs()
	if err != nil {
		t.Fatalf("DialArgs: %v", err)
	}
	conn, err := net.Dial(network, address)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := frame.WriteMessage(conn, &wire.StreamInfo{Proto: "/echo/1.0"}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	select {
	case got := <-received:
		if got.Proto != "/echo/1.0" {
			t.Fatalf("unexpected StreamInfo: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch over the resolved TCP address")
	}
}

func TestBindRefusesLiveSocket(t *testing.T) {
	reg := registry.New()
	addr := tempSocketAddr(t)

	l1 := New(reg, frame.DefaultMaxFrameSize, nil, nil)
	if _, err := l1.Bind(addr); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer l1.Close()

	l2 := New(registry.New(), frame.DefaultMaxFrameSize, nil, nil)
	if _, err := l2.Bind(addr); err == nil {
		t.Fatal("expected second Bind against a live socket to fail")
	}
}
