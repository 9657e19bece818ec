package wire

// PSRequest carries the arguments for the pubsub_* operations.
type PSRequest struct {
	Type  PSRequestType
	Topic string
	Data  []byte
}

func (p *PSRequest) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(p.Type))
	if p.Topic != "" {
		buf = appendStringField(buf, 2, p.Topic)
	}
	if len(p.Data) > 0 {
		buf = appendBytesField(buf, 3, p.Data)
	}
	return buf, nil
}

func (p *PSRequest) Unmarshal(data []byte) error {
	*p = PSRequest{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			p.Type = PSRequestType(f.value)
		case 2:
			p.Topic = string(f.payload)
		case 3:
			p.Data = append([]byte(nil), f.payload...)
		}
		return nil
	})
}

// PSMessage is one message delivered to a subscription's dedicated
// socket, framed on its own, outside the request/response envelope.
type PSMessage struct {
	From      []byte
	Data      []byte
	Seqno     []byte
	TopicIDs  []string
	Signature []byte
	Key       []byte
}

func (m *PSMessage) Marshal() ([]byte, error) {
	var buf []byte
	buf = appendBytesField(buf, 1, m.From)
	buf = appendBytesField(buf, 2, m.Data)
	buf = appendBytesField(buf, 3, m.Seqno)
	for _, t := range m.TopicIDs {
		buf = appendStringField(buf, 4, t)
	}
	if len(m.Signature) > 0 {
		buf = appendBytesField(buf, 5, m.Signature)
	}
	if len(m.Key) > 0 {
		buf = appendBytesField(buf, 6, m.Key)
	}
	return buf, nil
}

func (m *PSMessage) Unmarshal(data []byte) error {
	*m = PSMessage{}
	return eachField(data, func(f rawField) error {
		switch f.num {
		case 1:
			m.From = append([]byte(nil), f.payload...)
		case 2:
			m.Data = append([]byte(nil), f.payload...)
		case 3:
			m.Seqno = append([]byte(nil), f.payload...)
		case 4:
			m.TopicIDs = append(m.TopicIDs, string(f.payload))
		case 5:
			m.Signature = append([]byte(nil), f.payload...)
		case 6:
			m.Key = append([]byte(nil), f.payload...)
		}
		return nil
	})
}
