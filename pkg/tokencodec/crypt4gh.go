package tokencodec

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
)

// envelope is a single-recipient Crypt4GH-style wrapping: an ephemeral
// X25519 public key, an AEAD nonce, and the ChaCha20-Poly1305 ciphertext,
// concatenated and base64-encoded. The shared secret derived via X25519
// key agreement between the ephemeral private key and the recipient's
// public key is used directly as the AEAD key, since curve25519's 32-byte
// output is exactly chacha20poly1305's key size.
const (
	pubKeySize = curve25519.PointSize
	nonceSize  = chacha20poly1305.NonceSize
)

// EncryptForUser wraps payload in the single-recipient Crypt4GH-style
// envelope described above (not the Crypt4GH file format with its header
// packets), addressed to the given base64-encoded X25519 public key, returning the
// base64-encoded envelope. It fails with errtypes.InvalidUserKey when the
// recipient key cannot be decoded into a valid point.
func (c *Codec) EncryptForUser(payload []byte, recipientPubKeyB64 string) (string, error) {
	recipientPub, err := decodeRecipientKey(recipientPubKeyB64)
	if err != nil {
		return "", err
	}

	var ephemeralPriv [32]byte
	if _, err := rand.Read(ephemeralPriv[:]); err != nil {
		return "", errors.Wrap(err, "tokencodec: generating ephemeral key")
	}
	ephemeralPub, err := curve25519.X25519(ephemeralPriv[:], curve25519.Basepoint)
	if err != nil {
		return "", errors.Wrap(err, "tokencodec: deriving ephemeral public key")
	}

	shared, err := curve25519.X25519(ephemeralPriv[:], recipientPub)
	if err != nil {
		return "", errtypes.InvalidUserKey("recipient key does not yield a valid shared secret")
	}

	aead, err := chacha20poly1305.New(shared)
	if err != nil {
		return "", errors.Wrap(err, "tokencodec: constructing AEAD")
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "tokencodec: generating nonce")
	}

	ciphertext := aead.Seal(nil, nonce, payload, nil)

	envelope := make([]byte, 0, pubKeySize+nonceSize+len(ciphertext))
	envelope = append(envelope, ephemeralPub...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptWithKey opens an envelope produced by EncryptForUser using the
// recipient's private key, both base64-encoded. It exists to exercise the
// round trip in tests; the service itself never holds a user's private key.
func DecryptWithKey(envelopeB64, recipientPrivB64 string) ([]byte, error) {
	priv, err := base64.StdEncoding.DecodeString(recipientPrivB64)
	if err != nil || len(priv) != 32 {
		return nil, errors.New("tokencodec: invalid recipient private key")
	}

	envelope, err := base64.StdEncoding.DecodeString(envelopeB64)
	if err != nil {
		return nil, errors.Wrap(err, "tokencodec: invalid envelope encoding")
	}
	if len(envelope) < pubKeySize+nonceSize {
		return nil, errors.New("tokencodec: envelope too short")
	}

	ephemeralPub := envelope[:pubKeySize]
	nonce := envelope[pubKeySize : pubKeySize+nonceSize]
	ciphertext := envelope[pubKeySize+nonceSize:]

	shared, err := curve25519.X25519(priv, ephemeralPub)
	if err != nil {
		return nil, errors.Wrap(err, "tokencodec: deriving shared secret")
	}

	aead, err := chacha20poly1305.New(shared)
	if err != nil {
		return nil, errors.Wrap(err, "tokencodec: constructing AEAD")
	}

	return aead.Open(nil, nonce, ciphertext, nil)
}

func decodeRecipientKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errtypes.InvalidUserKey("not valid base64")
	}
	if len(key) != pubKeySize {
		return nil, errtypes.InvalidUserKey("not a 32-byte X25519 point")
	}
	return key, nil
}
