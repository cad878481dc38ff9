package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
	"github.com/bioarchive/workpkgsvc/pkg/identity"
	"github.com/bioarchive/workpkgsvc/pkg/jwk"
)

const testJWK = `{"kty":"EC","crv":"P-256","x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4","y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFGI","d":"870MB6gfuTJ4HtUnUvYMyJpr5eUZNP4Bk43bVdj3eAE"}`

type assertionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func signAssertion(t *testing.T, claims assertionClaims) string {
	t.Helper()
	key, err := jwk.ParseES256PrivateKey(testJWK)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyAcceptsAWellFormedAssertion(t *testing.T) {
	v, err := identity.New(testJWK, nil)
	require.NoError(t, err)

	assertion := signAssertion(t, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "user-1",
		FullName:         "Ada Lovelace",
		Email:            "ada@example.org",
	})

	user, err := v.Verify(context.Background(), assertion)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "Ada Lovelace", user.Name)
	require.Equal(t, "ada@example.org", user.Email)
}

func TestVerifyRejectsAnExpiredAssertion(t *testing.T) {
	v, err := identity.New(testJWK, nil)
	require.NoError(t, err)

	assertion := signAssertion(t, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		UserID:           "user-1",
		FullName:         "Ada Lovelace",
		Email:            "ada@example.org",
	})

	_, err = v.Verify(context.Background(), assertion)
	require.Error(t, err)
	var notAuth errtypes.IsNotAuthenticated
	require.ErrorAs(t, err, &notAuth)
}

func TestVerifyRejectsAnAssertionMissingRequiredClaims(t *testing.T) {
	v, err := identity.New(testJWK, nil)
	require.NoError(t, err)

	assertion := signAssertion(t, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "user-1",
		// FullName and Email deliberately omitted.
	})

	_, err = v.Verify(context.Background(), assertion)
	require.Error(t, err)
	var notAuth errtypes.IsNotAuthenticated
	require.ErrorAs(t, err, &notAuth)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v, err := identity.New(testJWK, nil)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "not-a-jwt-at-all")
	require.Error(t, err)
	var notAuth errtypes.IsNotAuthenticated
	require.ErrorAs(t, err, &notAuth)
}

func TestNewRejectsMalformedJWK(t *testing.T) {
	_, err := identity.New(`{"kty":"EC","crv":"P-384","x":"AA","y":"AA"}`, nil)
	require.Error(t, err)
}

func TestNewRejectsInvalidJSON(t *testing.T) {
	_, err := identity.New(`not json`, nil)
	require.Error(t, err)
}

func TestNewDefaultsToES256WhenNoAlgorithmsGiven(t *testing.T) {
	v, err := identity.New(testJWK, nil)
	require.NoError(t, err)

	assertion := signAssertion(t, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "user-1",
		FullName:         "Ada Lovelace",
		Email:            "ada@example.org",
	})

	_, err = v.Verify(context.Background(), assertion)
	require.NoError(t, err)
}
