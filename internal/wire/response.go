package wire

// Response is the top-level envelope the daemon sends back for every
// Request. When Kind is ResponseTypeError, Error is populated and every
// other field is nil; otherwise at most the field matching the original
// request's type is populated.
type Response struct {
	Kind ResponseType

	Error    *ResponseError
	Identify *IdentifyResponse
	Stream   *StreamInfo
	Peers    []*Peer
	DHT      *DHTResponse
	Pubsub   *PSResponse
}

func (r *Response) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(r.Kind))
	if r.Error != nil {
		buf = appendMessageField(buf, 2, r.Error)
	}
	if r.Identify != nil {
		buf = appendMessageField(buf, 3, r.Identify)
	}
	if r.Stream != nil {
		buf = appendMessageField(buf, 4, r.Stream)
	}
	for _, p := range r.Peers {
		buf = appendMessageField(buf, 5, p)
	}
	if r.DHT != nil {
		buf = appendMessageField(buf, 6, r.DHT)
	}
	if r.Pubsub != nil {
		buf = appendMessageField(buf, 7, r.Pubsub)
	}
	return buf, nil
}

func (r *Response) Unmarshal(data []byte) error {
	*r = Response{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			r.Kind = ResponseType(f.value)
		case 2:
			r.Error = &ResponseError{}
			return r.Error.Unmarshal(f.payload)
		case 3:
			r.Identify = &IdentifyResponse{}
			return r.Identify.Unmarshal(f.payload)
		case 4:
			r.Stream = &StreamInfo{}
			return r.Stream.Unmarshal(f.payload)
		case 5:
			p := &Peer{}
			if err := p.Unmarshal(f.payload); err != nil {
				return err
			}
			r.Peers = append(r.Peers, p)
		case 6:
			r.DHT = &DHTResponse{}
			return r.DHT.Unmarshal(f.payload)
		case 7:
			r.Pubsub = &PSResponse{}
			return r.Pubsub.Unmarshal(f.payload)
		}
		return nil
	})
}

// ResponseError carries the daemon's explanation for ResponseTypeError.
type ResponseError struct {
	Msg string
}

func (e *ResponseError) Marshal() ([]byte, error) {
	return appendStringField(nil, 1, e.Msg), nil
}

func (e *ResponseError) Unmarshal(data []byte) error {
	*e = ResponseError{}
	return eachField(data, func(f rawField) error {
		if f.num == 1 {
			e.Msg = string(f.payload)
		}
		return nil
	})
}

// IdentifyResponse answers the IDENTIFY request with the daemon's own
// peer ID and listen addresses.
type IdentifyResponse struct {
	ID    []byte
	Addrs [][]byte
}

func (i *IdentifyResponse) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, i.ID)
	for _, a := range i.Addrs {
		buf = appendBytesField(buf, 2, a)
	}
	return buf, nil
}

func (i *IdentifyResponse) Unmarshal(data []byte) error {
	*i = IdentifyResponse{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			i.ID = append([]byte(nil), f.payload...)
		case 2:
			i.Addrs = append(i.Addrs, append([]byte(nil), f.payload...))
		}
		return nil
	})
}

// PSResponse answers pubsub_get_topics and pubsub_list_peers.
type PSResponse struct {
	Topics  []string
	PeerIDs [][]byte
}

func (p *PSResponse) Marshal() ([]byte, error) {
	var buf []byte
	for _, t := range p.Topics {
		buf = appendStringField(buf, 1, t)
	}
	for _, id := range p.PeerIDs {
		buf = appendBytesField(buf, 2, id)
	}
	return buf, nil
}

func (p *PSResponse) Unmarshal(data []byte) error {
	*p = PSResponse{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			p.Topics = append(p.Topics, string(f.payload))
		case 2:
			p.PeerIDs = append(p.PeerIDs, append([]byte(nil), f.payload...))
		}
		return nil
	})
}
