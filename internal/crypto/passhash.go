// Package crypto implements password verifier hashing and comparison.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the hex-encoded SHA-256 verifier of password.
//
// Known weakness, kept on purpose: the verifier is a single unsalted hash
// because that is the on-disk format of the existing dataset. Do not reuse
// this for new trust-sensitive code; anything new should use a salted,
// memory-hard KDF (argon2id).
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares password against the stored verifier in constant
// time.
func VerifyPassword(password, verifier string) bool {
	got := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(verifier)) == 1
}
