package common

import (
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
)

// Key is a 16-byte opaque identifier supplied by the host (typically a GUID)
// or derived deterministically from an asset URI. Equality is bytewise, which
// Go provides for free on the array type.
type Key [16]byte

// ZeroKey is the all-zero Key. It is a valid map key but never assigned to a
// live surface or asset by this module.
var ZeroKey Key

// KeyFromBytes builds a Key from a byte slice.
//
// Parameters:
//   - b: source bytes; must be exactly 16 bytes long
//
// Returns:
//   - Key: the constructed key
//   - bool: false if the slice length is not 16
func KeyFromBytes(b []byte) (Key, bool) {
	var k Key
	if len(b) != len(k) {
		return ZeroKey, false
	}
	copy(k[:], b)
	return k, true
}

// IsZero reports whether the key is the all-zero key.
func (k Key) IsZero() bool {
	return k == ZeroKey
}

// String returns the lowercase hex encoding of the key, for logging and
// debug names.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Hash64 combines the two 64-bit halves of the key into a single hash value.
// Used by registries that shard or bucket on the key.
func (k Key) Hash64() uint64 {
	lo := binary.LittleEndian.Uint64(k[0:8])
	hi := binary.LittleEndian.Uint64(k[8:16])
	// Rotate the high half before mixing so keys differing only in one half
	// still spread across buckets.
	return lo ^ (hi<<25 | hi>>39)
}

// generatedSalt is appended to an asset URI before hashing the second half of
// a derived asset key. Bumping the version invalidates every derived key.
const generatedSalt = "#generated_v1"

// DeriveAssetKey computes the deterministic 16-byte asset key for a
// procedural-geometry URI. The key is the concatenation of the little-endian
// bytes of FNV-1a-64(uri) and FNV-1a-64(uri + "#generated_v1"). The same URI
// always yields the same key, across processes and platforms.
//
// Parameters:
//   - uri: the asset URI to derive from
//
// Returns:
//   - Key: the derived key
func DeriveAssetKey(uri string) Key {
	var k Key

	h := fnv.New64a()
	_, _ = h.Write([]byte(uri)) // fnv.Write never returns an error
	binary.LittleEndian.PutUint64(k[0:8], h.Sum64())

	h = fnv.New64a()
	_, _ = h.Write([]byte(uri))
	_, _ = h.Write([]byte(generatedSalt))
	binary.LittleEndian.PutUint64(k[8:16], h.Sum64())

	return k
}
