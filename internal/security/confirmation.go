package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"identity-registration/internal/user/domain"
)

// confirmationAudience keeps confirmation tokens from being accepted anywhere else.
const confirmationAudience = "email-confirmation"

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed or issued for another purpose.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when an otherwise valid confirmation token is past its expiry.
	ErrExpiredToken = errors.New("confirmation token expired")
)

// ConfirmationClaims binds a confirmation token to a user and the email it was sent to.
type ConfirmationClaims struct {
	jwt.RegisteredClaims
	EmailHash string `json:"email_hash"`
}

// Confirmation is an issued confirmation token and the link that carries it.
// The zero value means no confirmation was issued.
type Confirmation struct {
	Link  string
	Token string
}

// ConfirmationIssuer signs confirmation tokens with RS256 or ES256 and builds
// links of the form <baseURL>/<token>.
type ConfirmationIssuer struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	baseURL    string
	ttl        time.Duration
	nowF       func() time.Time
}

// NewConfirmationIssuer returns an issuer for the given key pair. baseURL must be
// an absolute URL; ttl must be positive.
func NewConfirmationIssuer(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, baseURL string, ttl time.Duration) (*ConfirmationIssuer, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("confirmation: base URL %q must be absolute", baseURL)
	}
	if ttl <= 0 {
		return nil, errors.New("confirmation: ttl must be positive")
	}
	return &ConfirmationIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		baseURL:    baseURL,
		ttl:        ttl,
		nowF:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// GenerateConfirmationLink issues a token for u and returns it with the link to follow.
func (c *ConfirmationIssuer) GenerateConfirmationLink(u *domain.User) (Confirmation, error) {
	if u == nil || u.ID == "" {
		return Confirmation{}, errors.New("confirmation: user has no id")
	}
	jti, err := generateJTI()
	if err != nil {
		return Confirmation{}, err
	}
	now := c.nowF()
	claims := ConfirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{confirmationAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		EmailHash: HashEmail(u.Email),
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.privateKey)
	if err != nil {
		return Confirmation{}, err
	}
	link, err := url.JoinPath(c.baseURL, token)
	if err != nil {
		return Confirmation{}, err
	}
	return Confirmation{Link: link, Token: token}, nil
}

// Verify checks signature, issuer, audience and expiry, and returns the user id
// and email hash the token was issued for.
func (c *ConfirmationIssuer) Verify(token string) (userID, emailHash string, err error) {
	claims := &ConfirmationClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return c.publicKey, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(confirmationAudience),
		jwt.WithTimeFunc(c.nowF),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.EmailHash == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.EmailHash, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
