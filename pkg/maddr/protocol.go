package maddr

import (
	"fmt"
	"net"
	"strconv"

	"github.com/mr-tron/base58/base58"
)

// Protocol codes, aligned with the multiformats/multicodec table for the
// subset this client speaks to the daemon over: IP transports, the Unix
// socket family, and the /p2p/<peer-id> peer component.
const (
	P_IP4  = 0x0004
	P_TCP  = 0x0006
	P_UDP  = 0x0111
	P_IP6  = 0x0029
	P_UNIX = 0x0190
	P_P2P  = 0x01A5
)

// lengthPrefixedVarSize marks a protocol whose value is length-prefixed
// (a varint byte count followed by that many bytes), as opposed to a fixed
// bit width.
const lengthPrefixedVarSize = -1

// protocol describes one multiaddr path component.
type protocol struct {
	name string
	code int
	// size is the bit width of a fixed-size value, or lengthPrefixedVarSize.
	size int
	// path marks a protocol whose value is itself a "/"-separated path
	// (only "unix" today): it consumes every remaining string segment
	// instead of just the next one.
	path          bool
	stringToBytes func(string) ([]byte, error)
	bytesToString func([]byte) (string, error)
}

var protocolsByName = map[string]protocol{}
var protocolsByCode = map[int]protocol{}

func register(p protocol) {
	protocolsByName[p.name] = p
	protocolsByCode[p.code] = p
}

func init() {
	register(protocol{name: "ip4", code: P_IP4, size: 32, stringToBytes: ip4ToBytes, bytesToString: ip4ToString})
	register(protocol{name: "ip6", code: P_IP6, size: 128, stringToBytes: ip6ToBytes, bytesToString: ip6ToString})
	register(protocol{name: "tcp", code: P_TCP, size: 16, stringToBytes: portToBytes, bytesToString: portToString})
	register(protocol{name: "udp", code: P_UDP, size: 16, stringToBytes: portToBytes, bytesToString: portToString})
	register(protocol{name: "unix", code: P_UNIX, size: lengthPrefixedVarSize, path: true, stringToBytes: pathToBytes, bytesToString: pathToString})
	register(protocol{name: "p2p", code: P_P2P, size: lengthPrefixedVarSize, stringToBytes: p2pToBytes, bytesToString: p2pToString})
}

func protocolWithName(name string) (protocol, bool) {
	p, ok := protocolsByName[name]
	return p, ok
}

func protocolWithCode(code int) (protocol, bool) {
	p, ok := protocolsByCode[code]
	return p, ok
}

func ip4ToBytes(s string) ([]byte, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return nil, fmt.Errorf("maddr: invalid ip4 address %q", s)
	}
	return ip, nil
}

func ip4ToString(b []byte) (string, error) {
	if len(b) != 4 {
		return "", fmt.Errorf("maddr: invalid ip4 length %d", len(b))
	}
	return net.IP(b).String(), nil
}

func ip6ToBytes(s string) ([]byte, error) {
	ip := net.ParseIP(s).To16()
	if ip == nil {
		return nil, fmt.Errorf("maddr: invalid ip6 address %q", s)
	}
	return ip, nil
}

func ip6ToString(b []byte) (string, error) {
	if len(b) != 16 {
		return "", fmt.Errorf("maddr: invalid ip6 length %d", len(b))
	}
	return net.IP(b).String(), nil
}

func portToBytes(s string) ([]byte, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("maddr: invalid port %q: %w", s, err)
	}
	return []byte{byte(port >> 8), byte(port)}, nil
}

func portToString(b []byte) (string, error) {
	if len(b) != 2 {
		return "", fmt.Errorf("maddr: invalid port length %d", len(b))
	}
	return strconv.Itoa(int(b[0])<<8 | int(b[1])), nil
}

func pathToBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("maddr: empty unix path")
	}
	return []byte(s), nil
}

func pathToString(b []byte) (string, error) {
	return "/" + string(b), nil
}

func p2pToBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("maddr: empty peer id")
	}
	return base58.Decode(s)
}

func p2pToString(b []byte) (string, error) {
	return base58.Encode(b), nil
}
