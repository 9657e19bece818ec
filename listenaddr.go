package p2pd

import (
	"fmt"

	"github.com/dep2p/p2pd-client/pkg/maddr"
)

// defaultListenAddr derives the client's own listener address from the
// daemon's control address: a sibling Unix socket path for a Unix
// control address, or an ephemeral loopback TCP port for an IP one.
func defaultListenAddr(controlAddr maddr.Multiaddr) (maddr.Multiaddr, error) {
	switch controlAddr.Family() {
	case maddr.FamilyUnix:
		path, err := controlAddr.ValueForProtocol(maddr.P_UNIX)
		if err != nil {
			return maddr.Empty, err
		}
		return maddr.NewMultiaddr("/unix" + path + "-client.sock")
	case maddr.FamilyIP:
		return maddr.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
	default:
		return maddr.Empty, fmt.Errorf("p2pd: unsupported control address family in %q", controlAddr.String())
	}
}
