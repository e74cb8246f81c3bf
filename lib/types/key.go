package types

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

// DigestSize is the length of a record digest in bytes.
const DigestSize = 20

// Key identifies a record. Namespace and set are plain strings; the user
// key must be a string, a signed 64-bit integer or a byte blob - anything
// else is rejected at construction. Keys are immutable.
type Key struct {
	Namespace string
	SetName   string
	UserKey   Value

	digest [DigestSize]byte
}

// NewKey creates a key and computes its digest. The user key is converted
// with NewValue and must land on a string, integer or blob variant.
func NewKey(namespace, setName string, userKey interface{}) (*Key, error) {
	val, err := NewValue(userKey)
	if err != nil {
		return nil, err
	}

	digest, err := ComputeDigest(setName, val)
	if err != nil {
		return nil, err
	}

	return &Key{
		Namespace: namespace,
		SetName:   setName,
		UserKey:   val,
		digest:    digest,
	}, nil
}

// NewKeyWithDigest creates a key from an already-known digest, as received
// in scan and query responses. The user key may be nil when the server did
// not store it.
func NewKeyWithDigest(namespace, setName string, digest [DigestSize]byte, userKey Value) *Key {
	return &Key{
		Namespace: namespace,
		SetName:   setName,
		UserKey:   userKey,
		digest:    digest,
	}
}

// Digest returns the 20-byte record digest. Two keys with equal (set, user
// key) share a digest regardless of namespace - digest equality, not full
// key equality, is what the wire protocol and partition routing use.
func (k *Key) Digest() [DigestSize]byte { return k.digest }

// String returns a human-readable representation of the key.
func (k *Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Namespace, k.SetName, k.UserKey)
}

// ComputeDigest computes RIPEMD160(set || key-type byte || key bytes).
// Deterministic and namespace-independent. Integer keys encode as 8 bytes
// big-endian; strings as raw UTF-8; blobs as raw bytes. Any other variant
// is an invalid key type.
func ComputeDigest(setName string, userKey Value) ([DigestSize]byte, error) {
	var digest [DigestSize]byte
	var keyBytes []byte

	switch v := userKey.(type) {
	case IntegerValue:
		keyBytes = make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, uint64(int64(v)))
	case StringValue:
		keyBytes = []byte(v)
	case BytesValue:
		keyBytes = v
	default:
		return digest, NewErrorf(ErrInvalidKeyType,
			"user key must be string, integer or bytes, got %s", userKey.Type())
	}

	h := ripemd160.New()
	h.Write([]byte(setName))
	h.Write([]byte{byte(userKey.Type())})
	h.Write(keyBytes)
	copy(digest[:], h.Sum(nil))
	return digest, nil
}
