package common

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
)

// MakeRandURLString generates size random bytes and returns them encoded with
// the padded URL-safe base64 alphabet.
func MakeRandURLString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	defer WipeByteArray(b)
	return base64.URLEncoding.EncodeToString(b), nil
}

// RandUint16 returns a uniformly distributed random 16-bit value.
func RandUint16() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
