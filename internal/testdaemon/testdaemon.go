// Package testdaemon implements a minimal in-process stand-in for the
// libp2p daemon, speaking just enough of the control protocol to drive
// this module's end-to-end tests: identify, stream dispatch via a
// client-provided listener address, DHT streaming responses, pub/sub
// delivery, and error responses.
package testdaemon

import (
	"fmt"
	"net"

	"github.com/dep2p/p2pd-client/internal/frame"
	"github.com/dep2p/p2pd-client/internal/wire"
	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// Daemon is a fake control-protocol server. Each field is a hook the test
// populates to script the daemon's behavior for one Request.Type. A nil
// hook makes identify, connect, disconnect, list_peers and connmgr
// requests reply with a generic OK, and stream_open, DHT and pub/sub
// requests reply with an ERROR.
type Daemon struct {
	ln net.Listener

	OnIdentify    func() *wire.IdentifyResponse
	OnConnect     func(*wire.ConnectRequest) error
	OnDisconnect  func(*wire.DisconnectRequest) error
	OnListPeers   func() []*wire.Peer
	OnStreamOpen  func(*wire.StreamOpenRequest) (*wire.StreamInfo, error)
	OnDHT         func(*wire.DHTRequest, net.Conn) (*wire.DHTResponse, []*wire.DHTResponse, error)
	OnConnManager func(*wire.ConnManagerRequest) error
	OnPubsub      func(*wire.PSRequest, net.Conn) (*wire.PSResponse, error)

	// OnStreamHandlerRegistered is invoked after an OK StreamHandler
	// registration. The test uses it to later dial back into the
	// client's listener address with a StreamInfo of its choosing.
	OnStreamHandlerRegistered func(addr []byte, protos []string)
}

// Listen binds the fake daemon to a Unix socket under dir and starts
// serving in the background.
func Listen(dir string) (*Daemon, string, error) {
	path := dir + "/daemon.sock"
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, "", err
	}
	d := &Daemon{ln: ln}
	go d.serve()
	return d, path, nil
}

func (d *Daemon) Close() error {
	return d.ln.Close()
}

func (d *Daemon) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *Daemon) handle(conn net.Conn) {
	var req wire.Request
	if err := frame.ReadMessage(conn, &req, frame.DefaultMaxFrameSize); err != nil {
		conn.Close()
		return
	}

	switch req.Type {
	case wire.RequestTypeIdentify:
		resp := &wire.Response{Kind: wire.ResponseTypeOK, Identify: &wire.IdentifyResponse{ID: []byte("fake-daemon")}}
		if d.OnIdentify != nil {
			resp.Identify = d.OnIdentify()
		}
		frame.WriteMessage(conn, resp)
		conn.Close()

	case wire.RequestTypeConnect:
		var err error
		if d.OnConnect != nil {
			err = d.OnConnect(req.Connect)
		}
		writeOKOrError(conn, err)
		conn.Close()

	case wire.RequestTypeDisconnect:
		var err error
		if d.OnDisconnect != nil {
			err = d.OnDisconnect(req.Disconnect)
		}
		writeOKOrError(conn, err)
		conn.Close()

	case wire.RequestTypeListPeers:
		var peers []*wire.Peer
		if d.OnListPeers != nil {
			peers = d.OnListPeers()
		}
		frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK, Peers: peers})
		conn.Close()

	case wire.RequestTypeStreamHandler:
		frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK})
		conn.Close()
		if d.OnStreamHandlerRegistered != nil && req.StreamHandler != nil {
			d.OnStreamHandlerRegistered(req.StreamHandler.Addr, req.StreamHandler.Protos)
		}

	case wire.RequestTypeStreamOpen:
		d.handleStreamOpen(conn, req.StreamOpen)

	case wire.RequestTypeDHT:
		d.handleDHT(conn, req.DHT)

	case wire.RequestTypeConnManager:
		var err error
		if d.OnConnManager != nil {
			err = d.OnConnManager(req.ConnManager)
		}
		writeOKOrError(conn, err)
		conn.Close()

	case wire.RequestTypePubsub:
		d.handlePubsub(conn, req.Pubsub)

	default:
		writeOKOrError(conn, fmt.Errorf("testdaemon: unhandled request type %v", req.Type))
		conn.Close()
	}
}

func (d *Daemon) handleStreamOpen(conn net.Conn, req *wire.StreamOpenRequest) {
	if d.OnStreamOpen == nil {
		writeOKOrError(conn, fmt.Errorf("testdaemon: stream_open not scripted"))
		conn.Close()
		return
	}
	info, err := d.OnStreamOpen(req)
	if err != nil {
		writeOKOrError(conn, err)
		conn.Close()
		return
	}
	frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK, Stream: info})
	// The control connection itself becomes the application duplex;
	// leave it open for the caller's I/O instead of closing it here.
}

func (d *Daemon) handleDHT(conn net.Conn, req *wire.DHTRequest) {
	if d.OnDHT == nil {
		writeOKOrError(conn, fmt.Errorf("testdaemon: dht op not scripted"))
		conn.Close()
		return
	}
	single, stream, err := d.OnDHT(req, conn)
	if err != nil {
		writeOKOrError(conn, err)
		conn.Close()
		return
	}
	if stream == nil {
		frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK, DHT: single})
		conn.Close()
		return
	}
	frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK, DHT: &wire.DHTResponse{Type: wire.DHTResponseTypeBegin}})
	for _, frm := range stream {
		frame.WriteMessage(conn, frm)
	}
	conn.Close()
}

func (d *Daemon) handlePubsub(conn net.Conn, req *wire.PSRequest) {
	if d.OnPubsub == nil {
		writeOKOrError(conn, fmt.Errorf("testdaemon: pubsub op not scripted"))
		conn.Close()
		return
	}
	resp, err := d.OnPubsub(req, conn)
	if err != nil {
		writeOKOrError(conn, err)
		conn.Close()
		return
	}
	frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK, Pubsub: resp})
	if req.Type != wire.PSRequestTypeSubscribe {
		conn.Close()
	}
	// For SUBSCRIBE, OnPubsub is responsible for writing subsequent
	// PSMessage frames on conn and closing it when the script is done.
}

func writeOKOrError(conn net.Conn, err error) {
	if err == nil {
		frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeOK})
		return
	}
	frame.WriteMessage(conn, &wire.Response{Kind: wire.ResponseTypeError, Error: &wire.ResponseError{Msg: err.Error()}})
}

// DialBack opens a connection to the client's listener address addr
// (e.g. the one passed to OnStreamHandlerRegistered) and writes the
// given StreamInfo followed by payload, mimicking the daemon dispatching
// an inbound application stream.
func DialBack(addr []byte, info *wire.StreamInfo, payload []byte) (net.Conn, error) {
	m, err := maddr.NewMultiaddrBytes(addr)
	if err != nil {
		return nil, err
	}
	network, address, err := m.DialArgs()
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	if err := frame.WriteMessage(conn, info); err != nil {
		conn.Close()
		return nil, err
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}
