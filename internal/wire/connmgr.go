package wire

// ConnManagerRequest carries the arguments for the connmgr_* operations.
type ConnManagerRequest struct {
	Type   ConnManagerRequestType
	Peer   []byte
	Tag    string
	Weight int32
}

func (c *ConnManagerRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(c.Type))
	if len(c.Peer) > 0 {
		buf = appendBytesField(buf, 2, c.Peer)
	}
	if c.Tag != "" {
		buf = appendStringField(buf, 3, c.Tag)
	}
	if c.Weight != 0 {
		buf = appendVarintField(buf, 4, uint64(uint32(c.Weight)))
	}
	return buf, nil
}

func (c *ConnManagerRequest) Unmarshal(data []byte) error {
	*c = ConnManagerRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			c.Type = ConnManagerRequestType(f.value)
		case 2:
			c.Peer = append([]byte(nil), f.payload...)
		case 3:
			c.Tag = string(f.payload)
		case 4:
			c.Weight = int32(uint32(f.value))
		}
		return nil
	})
}
