package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: 42, Email: "a@example.com", Role: domain.UserRoleAdmin}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	tok, err := issuer.Issue(testUser())
	require.NoError(t, err)

	claims, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	tok, err := issuer.Issue(testUser())
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Validate(tok)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("secret", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Validate(tok)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	issuer := NewTokenIssuer("secret", time.Hour)
	for _, tok := range []string{none, hs512, "garbage", ""} {
		_, err := issuer.Validate(tok)
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	}
}

func TestTokenTampered(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue(testUser())
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1] + "x"
	_, err = issuer.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestClaimsUserIDRejectsNonNumericSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}
	_, err := c.UserID()
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}
