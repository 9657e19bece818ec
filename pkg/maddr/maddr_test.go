package maddr

import "testing"

func TestRoundTripTCP(t *testing.T) {
	const s = "/ip4/127.0.0.1/tcp/4001"
	m, err := NewMultiaddr(s)
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	if got := m.String(); got != s {
		t.Fatalf("String() = %q, want %q", got, s)
	}

	m2, err := NewMultiaddrBytes(m.Bytes())
	if err != nil {
		t.Fatalf("NewMultiaddrBytes: %v", err)
	}
	if !m.Equal(m2) {
		t.Fatalf("round trip through bytes mismatch: %q != %q", m, m2)
	}
}

func TestRoundTripUnix(t *testing.T) {
	const s = "/unix/tmp/p2pd.sock"
	m, err := NewMultiaddr(s)
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	if got := m.String(); got != s {
		t.Fatalf("String() = %q, want %q", got, s)
	}
	if m.Family() != FamilyUnix {
		t.Fatalf("Family() = %v, want FamilyUnix", m.Family())
	}
	network, addr, err := m.DialArgs()
	if err != nil {
		t.Fatalf("DialArgs: %v", err)
	}
	if network != "unix" || addr != "/tmp/p2pd.sock" {
		t.Fatalf("DialArgs() = (%q, %q)", network, addr)
	}
}

func TestRoundTripP2P(t *testing.T) {
	const s = "/ip4/1.2.3.4/tcp/4001/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N"
	m, err := NewMultiaddr(s)
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	if got := m.String(); got != s {
		t.Fatalf("String() = %q, want %q", got, s)
	}
	peerID, err := m.ValueForProtocol(P_P2P)
	if err != nil {
		t.Fatalf("ValueForProtocol: %v", err)
	}
	if peerID != "QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N" {
		t.Fatalf("ValueForProtocol(P_P2P) = %q", peerID)
	}
}

func TestDialArgsTCP(t *testing.T) {
	m, err := NewMultiaddr("/ip4/0.0.0.0/tcp/0")
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	network, addr, err := m.DialArgs()
	if err != nil {
		t.Fatalf("DialArgs: %v", err)
	}
	if network != "tcp" || addr != "0.0.0.0:0" {
		t.Fatalf("DialArgs() = (%q, %q)", network, addr)
	}
}

func TestValueForProtocolMissing(t *testing.T) {
	m, err := NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	if err != nil {
		t.Fatalf("NewMultiaddr: %v", err)
	}
	if _, err := m.ValueForProtocol(P_UNIX); err != ErrProtocolNotFound {
		t.Fatalf("expected ErrProtocolNotFound, got %v", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	cases := []string{
		"",
		"not-a-multiaddr",
		"/ip4/not-an-ip/tcp/4001",
		"/tcp/not-a-number",
		"/unix",
	}
	for _, c := range cases {
		if _, err := NewMultiaddr(c); err == nil {
			t.Errorf("NewMultiaddr(%q): expected error, got nil", c)
		}
	}
}

func TestNewMultiaddrBytesRejectsGarbage(t *testing.T) {
	if _, err := NewMultiaddrBytes([]byte{0xff, 0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected error decoding garbage bytes")
	}
}

func TestEqual(t *testing.T) {
	a, _ := NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	b, _ := NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	c, _ := NewMultiaddr("/ip4/127.0.0.1/tcp/4002")
	if !a.Equal(b) {
		t.Fatal("expected a == b")
	}
	if a.Equal(c) {
		t.Fatal("expected a != c")
	}
}
