package maddr

import (
	"bytes"
	"fmt"
	"strings"
)

// Multiaddr is a self-describing, composable network address.
type Multiaddr struct {
	b []byte
}

// Empty is the zero-value Multiaddr (no components).
var Empty Multiaddr

// NewMultiaddr parses the textual form, e.g. "/ip4/127.0.0.1/tcp/1234".
func NewMultiaddr(s string) (Multiaddr, error) {
	b, err := stringToBytes(s)
	if err != nil {
		return Empty, err
	}
	return Multiaddr{b: b}, nil
}

// NewMultiaddrBytes wraps the canonical byte-packed form, as read off the
// wire. The input is copied.
func NewMultiaddrBytes(b []byte) (Multiaddr, error) {
	if err := validateBytes(b); err != nil {
		return Empty, err
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	return Multiaddr{b: buf}, nil
}

// Bytes returns the canonical byte-packed form. Callers must not mutate it.
func (m Multiaddr) Bytes() []byte {
	return m.b
}

// String renders the textual form.
func (m Multiaddr) String() string {
	s, err := bytesToString(m.b)
	if err != nil {
		panic(fmt.Errorf("maddr: corrupt multiaddr: %w", err))
	}
	return s
}

// Equal compares canonical byte form.
func (m Multiaddr) Equal(other Multiaddr) bool {
	return bytes.Equal(m.b, other.b)
}

// IsZero reports whether m has no components.
func (m Multiaddr) IsZero() bool {
	return len(m.b) == 0
}

// ValueForProtocol returns the textual value of the first component with
// the given protocol code, e.g. ValueForProtocol(P_TCP) on
// "/ip4/1.2.3.4/tcp/4001" returns "4001".
func (m Multiaddr) ValueForProtocol(code int) (string, error) {
	b := m.b
	for len(b) > 0 {
		c, n, err := nextComponent(b)
		if err != nil {
			return "", err
		}
		if c.proto.code == code {
			return c.proto.bytesToString(c.value)
		}
		b = b[n:]
	}
	return "", ErrProtocolNotFound
}

// Family reports the address family this multiaddr targets, based on the
// first ip4/ip6/unix component it carries.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyUnix
	FamilyIP
)

// Family inspects the components and returns FamilyUnix for /unix/... and
// FamilyIP for anything rooted in /ip4 or /ip6.
func (m Multiaddr) Family() Family {
	b := m.b
	for len(b) > 0 {
		c, n, err := nextComponent(b)
		if err != nil {
			return FamilyUnknown
		}
		switch c.proto.code {
		case P_UNIX:
			return FamilyUnix
		case P_IP4, P_IP6:
			return FamilyIP
		}
		b = b[n:]
	}
	return FamilyUnknown
}

// DialArgs returns the ("unix"|"tcp", address) pair suitable for
// net.Dial/net.Listen, derived from the multiaddr's components.
func (m Multiaddr) DialArgs() (network, address string, err error) {
	switch m.Family() {
	case FamilyUnix:
		path, err := m.ValueForProtocol(P_UNIX)
		if err != nil {
			return "", "", err
		}
		return "unix", path, nil
	case FamilyIP:
		host, err := firstHost(m)
		if err != nil {
			return "", "", err
		}
		if port, err := m.ValueForProtocol(P_TCP); err == nil {
			return "tcp", host + ":" + port, nil
		}
		return "", "", fmt.Errorf("maddr: no tcp component in %q", m.String())
	default:
		return "", "", fmt.Errorf("maddr: unsupported address family in %q", m.String())
	}
}

func firstHost(m Multiaddr) (string, error) {
	if v, err := m.ValueForProtocol(P_IP4); err == nil {
		return v, nil
	}
	if v, err := m.ValueForProtocol(P_IP6); err == nil {
		return "[" + v + "]", nil
	}
	return "", fmt.Errorf("maddr: no ip4/ip6 component in %q", m.String())
}

type component struct {
	proto protocol
	value []byte
}

func nextComponent(b []byte) (component, int, error) {
	code, cn := consumeUvarint(b)
	if cn <= 0 {
		return component{}, 0, fmt.Errorf("maddr: malformed protocol code")
	}
	p, ok := protocolWithCode(int(code))
	if !ok {
		return component{}, 0, fmt.Errorf("maddr: unknown protocol code %d", code)
	}
	rest := b[cn:]
	if p.size == lengthPrefixedVarSize {
		length, ln := consumeUvarint(rest)
		if ln <= 0 {
			return component{}, 0, fmt.Errorf("maddr: malformed length for %s", p.name)
		}
		total := cn + ln + int(length)
		if int(length) > len(rest)-ln {
			return component{}, 0, fmt.Errorf("maddr: truncated %s component", p.name)
		}
		return component{proto: p, value: rest[ln : ln+int(length)]}, total, nil
	}
	byteLen := p.size / 8
	if byteLen > len(rest) {
		return component{}, 0, fmt.Errorf("maddr: truncated %s component", p.name)
	}
	return component{proto: p, value: rest[:byteLen]}, cn + byteLen, nil
}

func validateBytes(b []byte) error {
	for len(b) > 0 {
		c, n, err := nextComponent(b)
		if err != nil {
			return err
		}
		if err := validateComponent(c); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func validateComponent(c component) error {
	_, err := c.proto.bytesToString(c.value)
	return err
}

func stringToBytes(s string) ([]byte, error) {
	if s == "" || s[0] != '/' {
		return nil, fmt.Errorf("maddr: address must start with '/': %q", s)
	}
	parts := strings.Split(s, "/")[1:]
	var out []byte
	for i := 0; i < len(parts); {
		name := parts[i]
		i++
		p, ok := protocolWithName(name)
		if !ok {
			return nil, fmt.Errorf("maddr: unknown protocol %q", name)
		}
		out = appendUvarint(out, uint64(p.code))
		if p.size == 0 {
			continue
		}
		if i >= len(parts) {
			return nil, fmt.Errorf("maddr: protocol %q expects a value", name)
		}
		var value string
		if p.path {
			value = strings.Join(parts[i:], "/")
			i = len(parts)
		} else {
			value = parts[i]
			i++
		}
		vb, err := p.stringToBytes(value)
		if err != nil {
			return nil, err
		}
		if p.size == lengthPrefixedVarSize {
			out = appendUvarint(out, uint64(len(vb)))
		}
		out = append(out, vb...)
	}
	return out, nil
}

func bytesToString(b []byte) (string, error) {
	var sb strings.Builder
	for len(b) > 0 {
		c, n, err := nextComponent(b)
		if err != nil {
			return "", err
		}
		s, err := c.proto.bytesToString(c.value)
		if err != nil {
			return "", err
		}
		sb.WriteByte('/')
		sb.WriteString(c.proto.name)
		if c.proto.path {
			sb.WriteString(s)
		} else if len(c.value) > 0 || c.proto.size != 0 {
			sb.WriteByte('/')
			sb.WriteString(s)
		}
		b = b[n:]
	}
	return sb.String(), nil
}
