package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashEmail returns the hex SHA-256 of the lowercased email. Confirmation
// tokens carry this instead of the address itself.
func HashEmail(email string) string {
	h := sha256.Sum256([]byte(strings.ToLower(email)))
	return hex.EncodeToString(h[:])
}

// EmailHashEqual reports in constant time whether email hashes to storedHash.
func EmailHashEqual(email, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashEmail(email)), []byte(storedHash)) == 1
}
