package common

import (
	"encoding/binary"
	"hash/fnv"
	"testing"
)

func TestKeyFromBytes(t *testing.T) {
	b := make([]byte, 16)
	for i := range b {
		b[i] = byte(i)
	}
	k, ok := KeyFromBytes(b)
	if !ok {
		t.Fatal("expected 16-byte slice to convert")
	}
	for i := range b {
		if k[i] != byte(i) {
			t.Errorf("byte %d mismatch: got %d", i, k[i])
		}
	}

	if _, ok := KeyFromBytes(b[:15]); ok {
		t.Error("expected 15-byte slice to fail")
	}
	if _, ok := KeyFromBytes(append(b, 0)); ok {
		t.Error("expected 17-byte slice to fail")
	}
}

func TestKeyIsZero(t *testing.T) {
	if !ZeroKey.IsZero() {
		t.Error("ZeroKey must report zero")
	}
	var k Key
	k[3] = 1
	if k.IsZero() {
		t.Error("non-zero key reported zero")
	}
}

func TestKeyHash64DiffersPerHalf(t *testing.T) {
	var a, b Key
	a[0] = 1
	b[8] = 1
	if a.Hash64() == b.Hash64() {
		t.Error("keys differing in opposite halves hashed equal")
	}
	if a.Hash64() == ZeroKey.Hash64() {
		t.Error("non-zero key hashed equal to zero key")
	}
}

func TestDeriveAssetKeyDeterministic(t *testing.T) {
	const uri = "asset:///Engine/Generated/BasicShapes/cube"

	k1 := DeriveAssetKey(uri)
	k2 := DeriveAssetKey(uri)
	if k1 != k2 {
		t.Fatal("same URI derived different keys")
	}

	// The key layout is concat(LE FNV-1a-64(uri), LE FNV-1a-64(uri + salt)).
	h := fnv.New64a()
	h.Write([]byte(uri))
	if got := binary.LittleEndian.Uint64(k1[0:8]); got != h.Sum64() {
		t.Errorf("low half mismatch: got %#x want %#x", got, h.Sum64())
	}
	h = fnv.New64a()
	h.Write([]byte(uri + "#generated_v1"))
	if got := binary.LittleEndian.Uint64(k1[8:16]); got != h.Sum64() {
		t.Errorf("high half mismatch: got %#x want %#x", got, h.Sum64())
	}

	if DeriveAssetKey("asset:///Engine/Generated/BasicShapes/sphere") == k1 {
		t.Error("different URIs derived the same key")
	}
}
