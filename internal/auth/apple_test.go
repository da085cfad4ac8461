package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

const testAppleClient = "com.titanbot.app"

type keyFixture struct {
	priv jwk.Key
	set  jwk.Set
}

func newKeyFixture(t *testing.T) *keyFixture {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-kid"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256()))

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, "test-kid"))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256()))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return &keyFixture{priv: priv, set: set}
}

func (f *keyFixture) sign(t *testing.T, issuer, audience string, exp time.Time) string {
	t.Helper()
	return f.signClaims(t, issuer, audience, exp, map[string]any{"email": "a@privaterelay.appleid.com"})
}

func (f *keyFixture) signClaims(t *testing.T, issuer, audience string, exp time.Time, claims map[string]any) string {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject("apple-sub-1").
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(exp)
	for k, v := range claims {
		b = b.Claim(k, v)
	}
	tok, err := b.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), f.priv))
	require.NoError(t, err)
	return string(signed)
}

func (f *keyFixture) appleVerifier() *AppleVerifier {
	return NewAppleVerifier(testAppleClient, false).WithKeySetFetcher(func(ctx context.Context) (jwk.Set, error) {
		return f.set, nil
	})
}

func TestAppleVerify(t *testing.T) {
	f := newKeyFixture(t)
	token := f.sign(t, AppleIssuer, testAppleClient, time.Now().Add(time.Hour))
	blob := `{"name":{"firstName":"Tim","lastName":"Apple"},"email":"a@privaterelay.appleid.com"}`

	claims, err := f.appleVerifier().Verify(context.Background(), token, &blob)
	require.NoError(t, err)
	assert.Equal(t, "apple", claims.Provider)
	assert.Equal(t, "apple-sub-1", claims.Subject)
	assert.Equal(t, "a@privaterelay.appleid.com", claims.Email)
	assert.Equal(t, "Tim Apple", claims.Name)
}

func TestAppleVerifyRejectsBadTokens(t *testing.T) {
	f := newKeyFixture(t)
	other := newKeyFixture(t)

	tests := map[string]string{
		"wrong audience": f.sign(t, AppleIssuer, "com.someone.else", time.Now().Add(time.Hour)),
		"wrong issuer":   f.sign(t, "https://evil.example.com", testAppleClient, time.Now().Add(time.Hour)),
		"expired":        f.sign(t, AppleIssuer, testAppleClient, time.Now().Add(-time.Hour)),
		"unknown key":    other.sign(t, AppleIssuer, testAppleClient, time.Now().Add(time.Hour)),
		"garbage":        "not.a.jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.appleVerifier().Verify(context.Background(), token, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		})
	}
}

func TestAppleVerifyKeyFetchFailure(t *testing.T) {
	v := NewAppleVerifier(testAppleClient, false).WithKeySetFetcher(func(ctx context.Context) (jwk.Set, error) {
		return nil, errors.New("dial tcp: timeout")
	})
	_, err := v.Verify(context.Background(), "x.y.z", nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestAppleVerifyCachesKeys(t *testing.T) {
	f := newKeyFixture(t)
	calls := 0
	v := NewAppleVerifier(testAppleClient, false).WithKeySetFetcher(func(ctx context.Context) (jwk.Set, error) {
		calls++
		return f.set, nil
	})
	token := f.sign(t, AppleIssuer, testAppleClient, time.Now().Add(time.Hour))

	for range 3 {
		_, err := v.Verify(context.Background(), token, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestAppleVerifyNotConfigured(t *testing.T) {
	_, err := NewAppleVerifier("", false).Verify(context.Background(), "x.y.z", nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestAppleMockToken(t *testing.T) {
	claims, err := NewAppleVerifier("", true).Verify(context.Background(), MockAppleToken, nil)
	require.NoError(t, err)
	assert.Equal(t, "apple_user@example.com", claims.Email)

	_, err = NewAppleVerifier("", false).Verify(context.Background(), MockAppleToken, nil)
	assert.Error(t, err)
}

func TestAppleUserName(t *testing.T) {
	blob := `{"name":{"firstName":"Ada"}}`
	bad := `{`
	empty := ""
	assert.Equal(t, "Ada", AppleUserName(&blob))
	assert.Equal(t, "", AppleUserName(&bad))
	assert.Equal(t, "", AppleUserName(&empty))
	assert.Equal(t, "", AppleUserName(nil))
}
