package p2pd

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/logutil"
	"github.com/dep2p/p2pd-client/internal/testdaemon"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
	"github.com/dep2p/p2pd-client/pkg/peer"
)

// Scenario: ConnMgrTagPeer round trips the tag/weight through the wire
// request, and Listen rejects a second explicit call.
func TestConnMgrTagPeerAndListenAlreadyStarted(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	var gotTag string
	var gotWeight int32
	d.OnConnManager = func(req *wire.ConnManagerRequest) error {
		gotTag = req.Tag
		gotWeight = req.Weight
		return nil
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.ConnMgrTagPeer(ctx, peer.FromBytes([]byte("x")), "important", 100))
	require.Equal(t, "important", gotTag)
	require.Equal(t, int32(100), gotWeight)

	_, err = c.Listen()
	require.NoError(t, err)
	_, err = c.Listen()
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func newTestClient(t *testing.T, controlSock string) *Client {
	t.Helper()
	addr, err := maddr.NewMultiaddr("/unix" + controlSock)
	require.NoError(t, err)
	c, err := New(addr, WithLogger(logutil.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// Scenario: identify returns the daemon's own peer ID and addresses.
func TestIdentify(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	wantID := peer.FromBytes([]byte("daemon-peer-id"))
	listenAddr, err := maddr.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)
	addrBytes := listenAddr.Bytes()
	d.OnIdentify = func() *wire.IdentifyResponse {
		return &wire.IdentifyResponse{ID: wantID.Bytes(), Addrs: [][]byte{addrBytes}}
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, addrs, err := c.Identify(ctx)
	require.NoError(t, err)
	require.True(t, wantID.Equal(id))
	require.Len(t, addrs, 1)
	require.Equal(t, "/ip4/127.0.0.1/tcp/4001", addrs[0].String())
}

// Scenario: a registered handler receives a stream the daemon dials back
// with, populated with the right StreamInfo.
func TestStreamHandlerDispatch(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var registeredAddr []byte
	dialed := make(chan struct{})
	d.OnStreamHandlerRegistered = func(addr []byte, protos []string) {
		registeredAddr = addr
		close(dialed)
	}

	received := make(chan StreamInfo, 1)
	err = c.StreamHandler(ctx, "/echo/1.0.0", func(info StreamInfo, stream Stream) {
		received <- info
		buf := make([]byte, 5)
		n, _ := stream.Read(buf)
		stream.Write(buf[:n])
		stream.Close()
	})
	require.NoError(t, err)

	select {
	case <-dialed:
	case <-time.After(time.Second):
		t.Fatal("daemon never saw the stream_handler registration")
	}

	peerID := peer.FromBytes([]byte("remote-peer"))
	conn, err := testdaemon.DialBack(registeredAddr, &wire.StreamInfo{
		Peer:  peerID.Bytes(),
		Proto: "/echo/1.0.0",
	}, []byte("hello"))
	require.NoError(t, err)
	defer conn.Close()

	select {
	case info := <-received:
		require.True(t, peerID.Equal(info.Peer))
		require.Equal(t, "/echo/1.0.0", info.Proto)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}

	echoBuf := make([]byte, 5)
	n, err := io.ReadFull(conn, echoBuf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(echoBuf[:n]))
}

// Scenario: a DHT streaming query delivers every VALUE frame before END.
func TestDHTFindProvidersStreams(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	p1 := &wire.Peer{ID: []byte("p1")}
	p2 := &wire.Peer{ID: []byte("p2")}
	d.OnDHT = func(req *wire.DHTRequest, conn net.Conn) (*wire.DHTResponse, []*wire.DHTResponse, error) {
		return nil, []*wire.DHTResponse{
			{Type: wire.DHTResponseTypeValue, Peer: p1},
			{Type: wire.DHTResponseTypeValue, Peer: p2},
			{Type: wire.DHTResponseTypeEnd},
		}, nil
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	providers, err := c.DHTFindProviders(ctx, []byte("some-cid"), 10)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.True(t, peer.FromBytes([]byte("p1")).Equal(providers[0].ID))
	require.True(t, peer.FromBytes([]byte("p2")).Equal(providers[1].ID))
}

// Scenario: pub/sub subscription delivers messages in order and stops
// cleanly on Cancel.
func TestPubSubSubscribeOrderedDeliveryAndCancel(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	d.OnPubsub = func(req *wire.PSRequest, conn net.Conn) (*wire.PSResponse, error) {
		if req.Type != wire.PSRequestTypeSubscribe {
			return &wire.PSResponse{}, nil
		}
		go func() {
			for i := 0; i < 3; i++ {
				msg := &wire.PSMessage{From: []byte("pub"), Data: []byte{byte(i)}}
				if err := frame.WriteMessage(conn, msg); err != nil {
					return
				}
			}
		}()
		return &wire.PSResponse{}, nil
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := c.PubSubSubscribe(ctx, "topic")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case msg, ok := <-sub.Messages:
			require.True(t, ok)
			require.Equal(t, []byte{byte(i)}, msg.Data)
		case <-time.After(time.Second):
			t.Fatalf("message %d never arrived", i)
		}
	}

	sub.Cancel()
	select {
	case _, ok := <-sub.Messages:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription channel never closed after Cancel")
	}
}

// Scenario: dht_get_public_key parses the marshaled PublicKey out of the
// DHTResponse's shared value field, the same field get_value uses.
func TestDHTGetPublicKey(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	pk := &wire.PublicKey{Type: int32(peer.KeyTypeEd25519), Data: []byte("key-material")}
	pkBytes, err := pk.Marshal()
	require.NoError(t, err)
	d.OnDHT = func(req *wire.DHTRequest, conn net.Conn) (*wire.DHTResponse, []*wire.DHTResponse, error) {
		require.Equal(t, wire.DHTRequestTypeGetPublicKey, req.Type)
		return &wire.DHTResponse{Type: wire.DHTResponseTypeValue, Value: pkBytes}, nil, nil
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := c.DHTGetPublicKey(ctx, peer.FromBytes([]byte("target-peer")))
	require.NoError(t, err)
	require.Equal(t, peer.KeyTypeEd25519, got.Type)
	require.Equal(t, []byte("key-material"), got.Data)
}

// Scenario: a daemon ERROR response surfaces as a *ControlFailure that
// errors.As can unpack.
func TestErrorResponsePropagatesAsControlFailure(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	d.OnConnect = func(req *wire.ConnectRequest) error {
		return errors.New("no route to peer")
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx, peer.FromBytes([]byte("x")), nil)
	require.Error(t, err)
	var cf *ControlFailure
	require.True(t, errors.As(err, &cf))
	require.Equal(t, "connect", cf.Op)
}

// Scenario: concurrent StreamHandler registrations for distinct protocols
// and concurrent dispatch do not race or drop deliveries.
func TestConcurrentHandlerRegistrationAndDispatch(t *testing.T) {
	dir := t.TempDir()
	d, sock, err := testdaemon.Listen(dir)
	require.NoError(t, err)
	defer d.Close()

	var addr []byte
	registered := make(chan struct{}, 2)
	d.OnStreamHandlerRegistered = func(a []byte, protos []string) {
		addr = a
		registered <- struct{}{}
	}

	c := newTestClient(t, sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doneA := make(chan struct{}, 1)
	doneB := make(chan struct{}, 1)
	regErrs := make(chan error, 2)
	go func() {
		regErrs <- c.StreamHandler(ctx, "/a/1.0.0", func(info StreamInfo, s Stream) {
			s.Close()
			doneA <- struct{}{}
		})
	}()
	go func() {
		regErrs <- c.StreamHandler(ctx, "/b/1.0.0", func(info StreamInfo, s Stream) {
			s.Close()
			doneB <- struct{}{}
		})
	}()
	require.NoError(t, <-regErrs)
	require.NoError(t, <-regErrs)

	<-registered
	<-registered

	connA, err := testdaemon.DialBack(addr, &wire.StreamInfo{Proto: "/a/1.0.0"}, nil)
	require.NoError(t, err)
	defer connA.Close()
	connB, err := testdaemon.DialBack(addr, &wire.StreamInfo{Proto: "/b/1.0.0"}, nil)
	require.NoError(t, err)
	defer connB.Close()

	for _, ch := range []chan struct{}{doneA, doneB} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("handler never invoked")
		}
	}
}
