package types

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"golang.org/x/crypto/ripemd160"
)

// TestDigestDeterminism tests that the digest is stable across calls and
// independent of the namespace.
func TestDigestDeterminism(t *testing.T) {
	k1, err := NewKey("test", "demo", 1)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	k2, err := NewKey("test", "demo", 1)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	k3, err := NewKey("other-namespace", "demo", 1)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	d1, d2, d3 := k1.Digest(), k2.Digest(), k3.Digest()

	if d1 != d2 {
		t.Errorf("digest not stable across calls: %x vs %x", d1, d2)
	}
	if d1 != d3 {
		t.Errorf("digest depends on namespace: %x vs %x", d1, d3)
	}

	k4, err := NewKey("test", "demo", 2)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	if d4 := k4.Digest(); d1 == d4 {
		t.Errorf("different user keys produced equal digests: %x", d1)
	}

	k5, err := NewKey("test", "demo1", 1)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	if d5 := k5.Digest(); d1 == d5 {
		t.Errorf("different sets produced equal digests: %x", d1)
	}
}

// TestDigestLayout verifies the exact hash input layout:
// set bytes || key-type byte || encoded key bytes.
func TestDigestLayout(t *testing.T) {
	tests := []struct {
		name     string
		set      string
		userKey  interface{}
		typeByte byte
		keyBytes func() []byte
	}{
		{
			name:     "integer key big endian",
			set:      "demo",
			userKey:  int64(1),
			typeByte: byte(ParticleInteger),
			keyBytes: func() []byte {
				b := make([]byte, 8)
				binary.BigEndian.PutUint64(b, 1)
				return b
			},
		},
		{
			name:     "negative integer key",
			set:      "demo",
			userKey:  int64(-7),
			typeByte: byte(ParticleInteger),
			keyBytes: func() []byte {
				v := int64(-7)
				b := make([]byte, 8)
				binary.BigEndian.PutUint64(b, uint64(v))
				return b
			},
		},
		{
			name:     "string key utf8",
			set:      "demo",
			userKey:  "user-42",
			typeByte: byte(ParticleString),
			keyBytes: func() []byte { return []byte("user-42") },
		},
		{
			name:     "blob key raw",
			set:      "",
			userKey:  []byte{0x01, 0x02, 0xff},
			typeByte: byte(ParticleBlob),
			keyBytes: func() []byte { return []byte{0x01, 0x02, 0xff} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewKey("ns", tt.set, tt.userKey)
			if err != nil {
				t.Fatalf("NewKey() error = %v", err)
			}

			h := ripemd160.New()
			h.Write([]byte(tt.set))
			h.Write([]byte{tt.typeByte})
			h.Write(tt.keyBytes())
			want := h.Sum(nil)

			got := key.Digest()
			if !bytes.Equal(got[:], want) {
				t.Errorf("digest = %x, want %x", got, want)
			}
		})
	}
}

// TestInvalidKeyTypes tests that unsupported user key types are rejected
// at the boundary instead of being coerced.
func TestInvalidKeyTypes(t *testing.T) {
	invalid := []interface{}{
		3.14,
		true,
		nil,
		[]interface{}{1, 2},
		map[string]interface{}{"a": 1},
	}

	for _, userKey := range invalid {
		if _, err := NewKey("test", "demo", userKey); err == nil {
			t.Errorf("NewKey(%v) expected error, got nil", userKey)
		} else if !errors.Is(err, ErrInvalidKeyType) && !errors.Is(err, ErrValue) {
			t.Errorf("NewKey(%v) error = %v, want key/value error", userKey, err)
		}
	}

	// float keys in particular must be an invalid key type, not a coercion
	if _, err := NewKey("test", "demo", 1.0); !errors.Is(err, ErrInvalidKeyType) {
		t.Errorf("float key error = %v, want ErrInvalidKeyType", err)
	}
}
