package wire

// Request is the top-level envelope the client sends to the daemon. Type
// selects which of the type-specific fields below is populated; the rest
// are left nil.
type Request struct {
	Type RequestType

	Connect       *ConnectRequest
	StreamOpen    *StreamOpenRequest
	StreamHandler *StreamHandlerRequest
	DHT           *DHTRequest
	ConnManager   *ConnManagerRequest
	Disconnect    *DisconnectRequest
	Pubsub        *PSRequest
	Peerstore     *PeerstoreRequest
}

func (r *Request) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Type))
	if r.Connect != nil {
		buf = appendMessageField(buf, 2, r.Connect)
	}
	if r.StreamOpen != nil {
		buf = appendMessageField(buf, 3, r.StreamOpen)
	}
	if r.StreamHandler != nil {
		buf = appendMessageField(buf, 4, r.StreamHandler)
	}
	if r.DHT != nil {
		buf = appendMessageField(buf, 5, r.DHT)
	}
	if r.ConnManager != nil {
		buf = appendMessageField(buf, 6, r.ConnManager)
	}
	if r.Disconnect != nil {
		buf = appendMessageField(buf, 7, r.Disconnect)
	}
	if r.Pubsub != nil {
		buf = appendMessageField(buf, 8, r.Pubsub)
	}
	if r.Peerstore != nil {
		buf = appendMessageField(buf, 9, r.Peerstore)
	}
	return buf, nil
}

func (r *Request) Unmarshal(data []byte) error {
	*r = Request{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			r.Type = RequestType(f.value)
		case 2:
			r.Connect = &ConnectRequest{}
			return r.Connect.Unmarshal(f.payload)
		case 3:
			r.StreamOpen = &StreamOpenRequest{}
			return r.StreamOpen.Unmarshal(f.payload)
		case 4:
			r.StreamHandler = &StreamHandlerRequest{}
			return r.StreamHandler.Unmarshal(f.payload)
		case 5:
			r.DHT = &DHTRequest{}
			return r.DHT.Unmarshal(f.payload)
		case 6:
			r.ConnManager = &ConnManagerRequest{}
			return r.ConnManager.Unmarshal(f.payload)
		case 7:
			r.Disconnect = &DisconnectRequest{}
			return r.Disconnect.Unmarshal(f.payload)
		case 8:
			r.Pubsub = &PSRequest{}
			return r.Pubsub.Unmarshal(f.payload)
		case 9:
			r.Peerstore = &PeerstoreRequest{}
			return r.Peerstore.Unmarshal(f.payload)
		}
		return nil
	})
}

// ConnectRequest carries the CONNECT operation's arguments.
type ConnectRequest struct {
	Peer  []byte
	Addrs [][]byte
}

func (c *ConnectRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, c.Peer)
	for _, a := range c.Addrs {
		buf = appendBytesField(buf, 2, a)
	}
	return buf, nil
}

func (c *ConnectRequest) Unmarshal(data []byte) error {
	*c = ConnectRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			c.Peer = append([]byte(nil), f.payload...)
		case 2:
			c.Addrs = append(c.Addrs, append([]byte(nil), f.payload...))
		}
		return nil
	})
}

// StreamOpenRequest carries the STREAM_OPEN operation's arguments.
type StreamOpenRequest struct {
	Peer   []byte
	Protos []string
}

func (s *StreamOpenRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, s.Peer)
	for _, p := range s.Protos {
		buf = appendStringField(buf, 2, p)
	}
	return buf, nil
}

func (s *StreamOpenRequest) Unmarshal(data []byte) error {
	*s = StreamOpenRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			s.Peer = append([]byte(nil), f.payload...)
		case 2:
			s.Protos = append(s.Protos, string(f.payload))
		}
		return nil
	})
}

// StreamHandlerRequest registers the client's listener address as the
// handler for one or more protocols.
type StreamHandlerRequest struct {
	Addr   []byte
	Protos []string
}

func (s *StreamHandlerRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, s.Addr)
	for _, p := range s.Protos {
		buf = appendStringField(buf, 2, p)
	}
	return buf, nil
}

func (s *StreamHandlerRequest) Unmarshal(data []byte) error {
	*s = StreamHandlerRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			s.Addr = append([]byte(nil), f.payload...)
		case 2:
			s.Protos = append(s.Protos, string(f.payload))
		}
		return nil
	})
}

// DisconnectRequest carries the DISCONNECT operation's argument.
type DisconnectRequest struct {
	Peer []byte
}

func (d *DisconnectRequest) Marshal() ([]byte, error) {
	return appendBytesField(nil, 1, d.Peer), nil
}

func (d *DisconnectRequest) Unmarshal(data []byte) error {
	*d = DisconnectRequest{}
	return eachField(data, func(f rawField) error {
		if f.num == 1 {
			d.Peer = append([]byte(nil), f.payload...)
		}
		return nil
	})
}
