package tokencodec_test

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
	"github.com/bioarchive/workpkgsvc/pkg/jwk"
	"github.com/bioarchive/workpkgsvc/pkg/tokencodec"
)

const testJWK = `{"kty":"EC","crv":"P-256","x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4","y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFGI","d":"870MB6gfuTJ4HtUnUvYMyJpr5eUZNP4Bk43bVdj3eAE"}`

func mustGenerateX25519() (pubB64, privB64 string) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		panic(err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(pub), base64.StdEncoding.EncodeToString(priv[:])
}

func TestRandomTokenIDAndSecretAreDistinctAndCorrectLength(t *testing.T) {
	id1, err := tokencodec.RandomTokenID()
	require.NoError(t, err)
	id2, err := tokencodec.RandomTokenID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	decoded, err := base64.RawURLEncoding.DecodeString(id1)
	require.NoError(t, err)
	require.Len(t, decoded, 20)

	secret, err := tokencodec.RandomSecret()
	require.NoError(t, err)
	decodedSecret, err := base64.RawURLEncoding.DecodeString(secret)
	require.NoError(t, err)
	require.Len(t, decodedSecret, 24)
}

func TestFingerprintIsStableAndSensitiveToInput(t *testing.T) {
	fp1 := tokencodec.Fingerprint("secret-a")
	fp2 := tokencodec.Fingerprint("secret-a")
	fp3 := tokencodec.Fingerprint("secret-b")

	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, fp3)
	require.Len(t, fp1, 64) // hex-encoded SHA-256
}

func TestSignProducesAVerifiableCompactToken(t *testing.T) {
	codec, err := tokencodec.New(testJWK)
	require.NoError(t, err)

	claims := tokencodec.Claims{
		Type:   "download",
		FileID: "f1",
		UserID: "u1",
	}

	signed, err := codec.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	pub, err := jwk.ParseES256PublicKey(testJWK)
	require.NoError(t, err)
	var parsed tokencodec.Claims
	token, err := jwt.ParseWithClaims(signed, &parsed, func(*jwt.Token) (interface{}, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)
	require.Equal(t, "f1", parsed.FileID)
	require.Equal(t, "u1", parsed.UserID)
}

func TestEncryptForUserRoundTrips(t *testing.T) {
	codec, err := tokencodec.New(testJWK)
	require.NoError(t, err)

	pub, priv := mustGenerateX25519()

	payload := []byte("hello work order token")
	envelope, err := codec.EncryptForUser(payload, pub)
	require.NoError(t, err)
	require.NotEmpty(t, envelope)

	decrypted, err := tokencodec.DecryptWithKey(envelope, priv)
	require.NoError(t, err)
	require.Equal(t, payload, decrypted)
}

func TestEncryptForUserRejectsMalformedKey(t *testing.T) {
	codec, err := tokencodec.New(testJWK)
	require.NoError(t, err)

	_, err = codec.EncryptForUser([]byte("payload"), "not-base64!!!")
	require.Error(t, err)

	var invalidKeyErr errtypes.IsInvalidUserKey
	require.ErrorAs(t, err, &invalidKeyErr)
}

func TestEncryptForUserIsNondeterministic(t *testing.T) {
	codec, err := tokencodec.New(testJWK)
	require.NoError(t, err)

	pub, _ := mustGenerateX25519()

	e1, err := codec.EncryptForUser([]byte("same payload"), pub)
	require.NoError(t, err)
	e2, err := codec.EncryptForUser([]byte("same payload"), pub)
	require.NoError(t, err)

	require.NotEqual(t, e1, e2, "envelopes must use a fresh ephemeral key and nonce each call")
}
