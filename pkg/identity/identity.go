// Package identity validates the internal bearer assertion that
// accompanies calls requiring the caller's identity, extracting a
// UserContext from its claims. Grounded on the JWT parse-and-extract
// pattern used for WOPI access tokens, generalized from HS256/StandardClaims
// to a configurable algorithm allow-list and a configurable signing key.
package identity

import (
	"context"
	"crypto/ecdsa"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
	"github.com/bioarchive/workpkgsvc/pkg/jwk"
)

// UserContext is the identity extracted from a verified internal assertion.
type UserContext struct {
	ID    string
	Name  string
	Email string
}

// assertionClaims are the claims this service requires an internal
// assertion to carry.
type assertionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Verifier validates internal bearer assertions against a configured key
// and algorithm allow-list.
type Verifier struct {
	key        *ecdsa.PublicKey
	algorithms []string
}

// New parses rawJWK (the JSON text of an EC P-256 JWK, the public half of
// the upstream auth service's signing key) and returns a Verifier checking
// signatures against it, restricted to algs (defaulting to {ES256} when
// empty, per the configuration schema).
func New(rawJWK string, algs []string) (*Verifier, error) {
	key, err := jwk.ParseES256PublicKey(rawJWK)
	if err != nil {
		return nil, err
	}
	if len(algs) == 0 {
		algs = []string{"ES256"}
	}
	return &Verifier{key: key, algorithms: algs}, nil
}

// Verify parses and validates assertion, returning the UserContext it
// carries. Any failure — bad signature, disallowed algorithm, or a missing
// required claim — collapses to errtypes.NotAuthenticated so the caller
// never learns which check failed.
func (v *Verifier) Verify(ctx context.Context, assertion string) (UserContext, error) {
	var claims assertionClaims
	token, err := jwt.ParseWithClaims(assertion, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.algorithms))
	if err != nil || !token.Valid {
		return UserContext{}, errtypes.NotAuthenticated("invalid internal assertion")
	}

	if claims.UserID == "" || claims.FullName == "" || claims.Email == "" {
		return UserContext{}, errtypes.NotAuthenticated("internal assertion missing required claims")
	}

	return UserContext{ID: claims.UserID, Name: claims.FullName, Email: claims.Email}, nil
}
