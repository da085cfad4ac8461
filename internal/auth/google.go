package auth

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// GoogleKeysURL serves the keys Google signs ID tokens with.
const GoogleKeysURL = "https://www.googleapis.com/oauth2/v3/certs"

// GoogleIssuers are the iss values Google puts in ID tokens.
var GoogleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// MockGoogleToken is accepted without verification when mock federation
// is enabled.
const MockGoogleToken = "mock_google_token_123"

// GoogleVerifier verifies Google ID tokens against Google's published JWKS.
type GoogleVerifier struct {
	clientID  string
	allowMock bool
	keys      *keyCache
}

// NewGoogleVerifier creates a verifier. When clientID is set, the token
// audience must match it. timeout bounds each key fetch.
func NewGoogleVerifier(clientID string, allowMock bool, timeout time.Duration) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:  clientID,
		allowMock: allowMock,
		keys:      newKeyCache(GoogleKeysURL, timeout),
	}
}

// WithKeySetFetcher replaces the JWKS source.
func (v *GoogleVerifier) WithKeySetFetcher(fetch KeySetFetcher) *GoogleVerifier {
	v.keys.fetch = fetch
	return v
}

// Verify resolves token to identity claims. A key fetch failure is
// domain.ErrProviderUnavailable; a rejected token is
// domain.ErrInvalidCredential.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*domain.FederatedClaims, error) {
	if token == "" {
		return nil, domain.NewValidationError("token", "token is required")
	}
	if v.allowMock && token == MockGoogleToken {
		return &domain.FederatedClaims{
			Provider:  "google",
			Subject:   "mock-google-user",
			Email:     "test@example.com",
			Name:      "Test User",
			AvatarURL: "https://via.placeholder.com/150",
		}, nil
	}

	set, err := v.keys.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithValidate(true)}
	if v.clientID != "" {
		opts = append(opts, jwt.WithAudience(v.clientID))
	}
	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}
	if iss, _ := tok.Issuer(); !slices.Contains(GoogleIssuers, iss) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrInvalidCredential, iss)
	}

	var email string
	if err := tok.Get("email", &email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: email not found in Google token", domain.ErrInvalidCredential)
	}
	var verified bool
	if err := tok.Get("email_verified", &verified); err == nil && !verified {
		return nil, fmt.Errorf("%w: Google email is not verified", domain.ErrInvalidCredential)
	}

	subject, _ := tok.Subject()
	var name, picture string
	_ = tok.Get("name", &name)
	_ = tok.Get("picture", &picture)

	return &domain.FederatedClaims{
		Provider:  "google",
		Subject:   subject,
		Email:     email,
		Name:      name,
		AvatarURL: picture,
	}, nil
}
