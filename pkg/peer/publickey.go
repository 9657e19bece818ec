package peer

// KeyType tags the algorithm of a marshaled public key, mirroring the
// daemon's crypto.pb KeyType enum. This package treats the key material
// itself as opaque; verifying or using it cryptographically is left to
// the caller.
type KeyType int32

const (
	KeyTypeRSA       KeyType = 0
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
	KeyTypeECDSA     KeyType = 3
)

// PublicKey is the marshaled public key of a peer as returned by
// dht_get_public_key.
type PublicKey struct {
	Type KeyType
	Data []byte
}
