// Package p2pd is a client library for the libp2p daemon control
// protocol: a length-prefixed, protobuf-framed request/response protocol
// spoken over a local Unix-domain or TCP-loopback socket to an
// out-of-process libp2p daemon.
//
// A Client dials the daemon's control socket for every operation and, on
// first stream-handler registration, binds its own listener socket so
// the daemon can dial back into it for inbound application streams. Each
// pub/sub subscription is read by a background goroutine on the control
// connection that opened it.
//
//	c, err := p2pd.New(daemonAddr, p2pd.WithListenAddr(listenAddr))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	id, addrs, err := c.Identify(ctx)
package p2pd
