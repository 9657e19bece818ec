package control

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// listenUnixTestServer binds a Unix socket and returns its Multiaddr plus
// the net.Listener, for a single-shot fake daemon to Accept from.
func listenUnixTestServer(t *testing.T) (maddr.Multiaddr, net.Listener) {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/ctl.sock"
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	m, err := maddr.NewMultiaddr("/unix" + path)
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	return m, ln
}

func TestRequestOK(t *testing.T) {
	m, ln := listenUnixTestServer(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req wire.Request
		if err := frame.ReadMessage(conn, &req, frame.DefaultMaxFrameSize); err != nil {
			return
		}
		resp := &wire.Response{
			Kind:     wire.ResponseTypeOK,
			Identify: &wire.IdentifyResponse{ID: []byte("daemon-id")},
		}
		frame.WriteMessage(conn, resp)
	}()

	d := New(m, frame.DefaultMaxFrameSize, time.Second, nil)
	resp, err := d.Request(context.Background(), "identify", &wire.Request{Type: wire.RequestTypeIdentify})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Identify == nil || string(resp.Identify.ID) != "daemon-id" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRequestErrorResponse(t *testing.T) {
	m, ln := listenUnixTestServer(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req wire.Request
		if err := frame.ReadMessage(conn, &req, frame.DefaultMaxFrameSize); err != nil {
			return
		}
		resp := &wire.Response{
			Kind:  wire.ResponseTypeError,
			Error: &wire.ResponseError{Msg: "no addresses"},
		}
		frame.WriteMessage(conn, resp)
	}()

	d := New(m, frame.DefaultMaxFrameSize, time.Second, nil)
	_, err := d.Request(context.Background(), "connect", &wire.Request{Type: wire.RequestTypeConnect})
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(*ControlError)
	if !ok {
		t.Fatalf("expected *ControlError, got %T", err)
	}
	if ce.Op != "connect" {
		t.Fatalf("expected op=connect, got %q", ce.Op)
	}
}

func TestStreamLeavesConnOpen(t *testing.T) {
	m, ln := listenUnixTestServer(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		var req wire.Request
		if err := frame.ReadMessage(conn, &req, frame.DefaultMaxFrameSize); err != nil {
			return
		}
		resp := &wire.Response{
			Kind:   wire.ResponseTypeOK,
			Stream: &wire.StreamInfo{Peer: []byte("pid-b"), Proto: "/echo/1.0"},
		}
		frame.WriteMessage(conn, resp)
		conn.Write([]byte("hi"))
	}()

	d := New(m, frame.DefaultMaxFrameSize, time.Second, nil)
	resp, conn, err := d.Stream(context.Background(), "stream_open", &wire.Request{Type: wire.RequestTypeStreamOpen})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer conn.Close()
	if resp.Stream == nil || resp.Stream.Proto != "/echo/1.0" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	buf := make([]byte, 2)
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hi" {
		t.Fatalf("got %q", buf)
	}
}

func TestDialFailureWrapsControlError(t *testing.T) {
	m, err := maddr.NewMultiaddr("/unix/nonexistent/path/to/socket")
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	d := New(m, frame.DefaultMaxFrameSize, 100*time.Millisecond, nil)
	_, err = d.Request(context.Background(), "identify", &wire.Request{Type: wire.RequestTypeIdentify})
	if _, ok := err.(*ControlError); !ok {
		t.Fatalf("expected *ControlError, got %T (%v)", err, err)
	}
}
