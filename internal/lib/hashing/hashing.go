package hashing

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

const saltSize = 16

// Sum returns the hex-encoded SHA3-256 digest of data. Password hashes and
// both token kinds go through this one function, so every credential string
// in the system shares the same fixed 64-character format.
func Sum(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify compares a stored digest against the digest of data in constant time.
func Verify(digest string, data []byte) bool {
	return subtle.ConstantTimeCompare([]byte(digest), []byte(Sum(data))) == 1
}

// NewSalt draws a random per-account salt from rnd.
func NewSalt(rnd io.Reader) (string, error) {
	const op = "hashing.NewSalt"

	buf := make([]byte, saltSize)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hex.EncodeToString(buf), nil
}
