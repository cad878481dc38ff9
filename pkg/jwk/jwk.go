// Package jwk hand-decodes the EC JWK JSON this service's configuration
// carries for its ES256 signing and verification keys. No JWK-parsing
// library is present in this project's dependency set, so the x/y/d
// base64url-encoded coordinates are decoded with encoding/json and
// math/big rather than pulled in from a dedicated library.
package jwk

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// doc is the subset of RFC 7517 fields an EC P-256 key uses.
type doc struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d"`
}

// ParseES256PrivateKey decodes a JSON EC P-256 JWK into an ECDSA private
// key. The d field must be present.
func ParseES256PrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	pub, d, err := parse(raw, true)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{PublicKey: *pub, D: d}, nil
}

// ParseES256PublicKey decodes a JSON EC P-256 JWK into an ECDSA public key.
// The d field, if present, is ignored.
func ParseES256PublicKey(raw string) (*ecdsa.PublicKey, error) {
	pub, _, err := parse(raw, false)
	return pub, err
}

func parse(raw string, requireD bool) (*ecdsa.PublicKey, *big.Int, error) {
	var k doc
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, nil, errors.Wrap(err, "jwk: invalid key JSON")
	}
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, nil, errors.New("jwk: key must be an EC P-256 JWK")
	}

	x, err := decodeCoordinate(k.X)
	if err != nil {
		return nil, nil, errors.Wrap(err, "jwk: invalid x coordinate")
	}
	y, err := decodeCoordinate(k.Y)
	if err != nil {
		return nil, nil, errors.Wrap(err, "jwk: invalid y coordinate")
	}

	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	var d *big.Int
	if requireD {
		d, err = decodeCoordinate(k.D)
		if err != nil {
			return nil, nil, errors.Wrap(err, "jwk: invalid d value")
		}
	}

	return pub, d, nil
}

func decodeCoordinate(b64url string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(b64url)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
