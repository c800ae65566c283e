package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"
)

// NewTestConfirmationIssuer returns a ConfirmationIssuer backed by a freshly
// generated P-256 key and a 24h ttl. For tests only.
func NewTestConfirmationIssuer(baseURL string) (*ConfirmationIssuer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewConfirmationIssuer(key, key.Public(), "test-issuer", baseURL, 24*time.Hour)
}
