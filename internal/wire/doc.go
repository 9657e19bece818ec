// Package wire implements the protobuf-wire-compatible envelope messages
// exchanged with the daemon: Request, Response, StreamInfo, and the
// DHT/pub-sub/connection-manager/peerstore sub-messages they carry.
//
// Rather than depend on protoc-generated code, each message hand-rolls its
// own Marshal/Unmarshal against the plain protobuf wire format (tag byte,
// varint length for length-delimited fields, varint value for integer
// fields). This keeps the module free of a code-generation step while
// remaining byte-compatible with anything speaking the same schema.
package wire
