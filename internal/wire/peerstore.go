package wire

// PeerstoreRequest carries the arguments for the peerstore_* operations.
// These sit alongside the other daemon operations in the Request.type
// enum but are a thin, rarely-used surface; GetProtocols/AddProtocols
// cover the common case of reading and extending a peer's known
// protocol list.
type PeerstoreRequest struct {
	Type   PeerstoreRequestType
	Peer   []byte
	Protos []string
}

func (p *PeerstoreRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(p.Type))
	buf = appendBytesField(buf, 2, p.Peer)
	for _, proto := range p.Protos {
		buf = appendStringField(buf, 3, proto)
	}
	return buf, nil
}

func (p *PeerstoreRequest) Unmarshal(data []byte) error {
	*p = PeerstoreRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			p.Type = PeerstoreRequestType(f.value)
		case 2:
			p.Peer = append([]byte(nil), f.payload...)
		case 3:
			p.Protos = append(p.Protos, string(f.payload))
		}
		return nil
	})
}
