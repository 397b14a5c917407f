package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// RawHashLen is the size of a raw SHA-1 digest in bytes.
const RawHashLen = sha1.Size

// HexHashLen is the length of a hex-encoded digest.
const HexHashLen = 2 * RawHashLen

// HashBytes computes the raw SHA-1 of data and returns it as a lowercase
// hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-1 of the canonical envelope
// "type len\0content", which is the digest Git assigns the object.
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(data))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// Raw converts the hex hash to its 20 raw bytes.
func (h Hash) Raw() ([]byte, error) {
	if len(h) != HexHashLen {
		return nil, fmt.Errorf("hash %q: want %d hex chars, got %d", h, HexHashLen, len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("hash %q: %w", h, err)
	}
	return raw, nil
}

// HashFromRaw converts 20 raw digest bytes to the hex form.
func HashFromRaw(raw []byte) (Hash, error) {
	if len(raw) != RawHashLen {
		return "", fmt.Errorf("raw hash: want %d bytes, got %d", RawHashLen, len(raw))
	}
	return Hash(hex.EncodeToString(raw)), nil
}

// Valid reports whether h is a well-formed lowercase hex digest.
func (h Hash) Valid() bool {
	if len(h) != HexHashLen {
		return false
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
