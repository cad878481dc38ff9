package tokencodec

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/bioarchive/workpkgsvc/pkg/jwk"
)

// Claims are the signed payload of a work-order token.
type Claims struct {
	jwt.RegisteredClaims
	Type                  string `json:"type"`
	FileID                string `json:"file_id"`
	UserID                string `json:"user_id"`
	UserPublicCrypt4GHKey string `json:"user_public_crypt4gh_key"`
	FullUserName          string `json:"full_user_name"`
	Email                 string `json:"email"`
}

// Codec signs compact tokens with the service's ES256 private key and
// encrypts payloads to user Crypt4GH public keys. It holds no other state
// and is safe for concurrent use.
type Codec struct {
	signingKey *ecdsa.PrivateKey
}

// New parses rawJWK (the JSON text of an ES256 JWK) and returns a Codec
// ready to sign and encrypt.
func New(rawJWK string) (*Codec, error) {
	key, err := jwk.ParseES256PrivateKey(rawJWK)
	if err != nil {
		return nil, err
	}
	return &Codec{signingKey: key}, nil
}

// Sign produces an ES256-signed compact token over claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "tokencodec: signing claims")
	}
	return signed, nil
}

// RandomTokenID returns 20 cryptographically random bytes, base64url
// encoded without padding.
func RandomTokenID() (string, error) {
	return randomB64URL(20)
}

// RandomSecret returns 24 cryptographically random bytes, base64url
// encoded without padding.
func RandomSecret() (string, error) {
	return randomB64URL(24)
}

func randomB64URL(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "tokencodec: generating random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint returns the lowercase hex SHA-256 digest of secret.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
