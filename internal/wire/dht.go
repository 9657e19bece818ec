package wire

// DHTRequest carries the arguments for every dht_* operation; Type
// selects which fields below are meaningful.
type DHTRequest struct {
	Type  DHTRequestType
	Peer  []byte
	CID   []byte
	Key   []byte
	Value []byte
	Count int32
}

func (d *DHTRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(d.Type))
	if len(d.Peer) > 0 {
		buf = appendBytesField(buf, 2, d.Peer)
	}
	if len(d.CID) > 0 {
		buf = appendBytesField(buf, 3, d.CID)
	}
	if len(d.Key) > 0 {
		buf = appendBytesField(buf, 4, d.Key)
	}
	if len(d.Value) > 0 {
		buf = appendBytesField(buf, 5, d.Value)
	}
	if d.Count != 0 {
		buf = appendVarintField(buf, 6, uint64(d.Count))
	}
	return buf, nil
}

func (d *DHTRequest) Unmarshal(data []byte) error {
	*d = DHTRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			d.Type = DHTRequestType(f.value)
		case 2:
			d.Peer = append([]byte(nil), f.payload...)
		case 3:
			d.CID = append([]byte(nil), f.payload...)
		case 4:
			d.Key = append([]byte(nil), f.payload...)
		case 5:
			d.Value = append([]byte(nil), f.payload...)
		case 6:
			d.Count = int32(f.value)
		}
		return nil
	})
}

// DHTResponse is one frame of a DHT streaming query, or the sole payload
// of a single-shot DHT operation embedded directly in a Response. A
// GET_PUBLIC_KEY result, like GET_VALUE, arrives in Value: it carries a
// marshaled PublicKey message, not a dedicated field.
type DHTResponse struct {
	Type DHTResponseType

	Peer  *Peer
	Value []byte
}

func (d *DHTResponse) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(d.Type))
	if d.Peer != nil {
		buf = appendMessageField(buf, 2, d.Peer)
	}
	if len(d.Value) > 0 {
		buf = appendBytesField(buf, 3, d.Value)
	}
	return buf, nil
}

func (d *DHTResponse) Unmarshal(data []byte) error {
	*d = DHTResponse{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			d.Type = DHTResponseType(f.value)
		case 2:
			d.Peer = &Peer{}
			return d.Peer.Unmarshal(f.payload)
		case 3:
			d.Value = append([]byte(nil), f.payload...)
		}
		return nil
	})
}

// PublicKey is the crypto.pb PublicKey message carried inside a
// GET_PUBLIC_KEY response's Value field: a key-type tag and the
// marshaled key material.
type PublicKey struct {
	Type int32
	Data []byte
}

func (k *PublicKey) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(k.Type))
	buf = appendBytesField(buf, 2, k.Data)
	return buf, nil
}

func (k *PublicKey) Unmarshal(data []byte) error {
	*k = PublicKey{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			k.Type = int32(f.value)
		case 2:
			k.Data = append([]byte(nil), f.payload...)
		}
		return nil
	})
}
