package wire

// Peer is the embedded peer-info message shared by list_peers and the DHT
// peer-discovery operations.
type Peer struct {
	ID    []byte
	Addrs [][]byte
}

func (p *Peer) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, p.ID)
	for _, a := range p.Addrs {
		buf = appendBytesField(buf, 2, a)
	}
	return buf, nil
}

func (p *Peer) Unmarshal(data []byte) error {
	*p = Peer{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			p.ID = append([]byte(nil), f.payload...)
		case 2:
			p.Addrs = append(p.Addrs, append([]byte(nil), f.payload...))
		}
		return nil
	})
}

// StreamInfo prefixes every application stream, outbound or inbound.
type StreamInfo struct {
	Peer  []byte
	Addr  []byte
	Proto string
}

func (s *StreamInfo) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, s.Peer)
	buf = appendBytesField(buf, 2, s.Addr)
	buf = appendStringField(buf, 3, s.Proto)
	return buf, nil
}

func (s *StreamInfo) Unmarshal(data []byte) error {
	*s = StreamInfo{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			s.Peer = append([]byte(nil), f.payload...)
		case 2:
			s.Addr = append([]byte(nil), f.payload...)
		case 3:
			s.Proto = string(f.payload)
		}
		return nil
	})
}
