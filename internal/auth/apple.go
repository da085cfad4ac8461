package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// Apple identity token constants.
const (
	AppleIssuer  = "https://appleid.apple.com"
	AppleKeysURL = "https://appleid.apple.com/auth/keys"
)

// MockAppleToken is accepted without verification when mock federation is
// enabled.
const MockAppleToken = "mock_apple_token_123"

// AppleVerifier verifies Sign in with Apple identity tokens against Apple's
// published JWKS.
type AppleVerifier struct {
	clientID  string
	allowMock bool
	keys      *keyCache
}

// NewAppleVerifier creates a verifier for tokens issued to clientID.
func NewAppleVerifier(clientID string, allowMock bool) *AppleVerifier {
	return &AppleVerifier{
		clientID:  clientID,
		allowMock: allowMock,
		keys:      newKeyCache(AppleKeysURL, 10*time.Second),
	}
}

// WithKeySetFetcher replaces the JWKS source.
func (v *AppleVerifier) WithKeySetFetcher(fetch KeySetFetcher) *AppleVerifier {
	v.keys.fetch = fetch
	return v
}

// Verify checks the identity token and returns its claims. userBlob is the
// optional JSON Apple sends on first sign-in; it is the only source of the
// user's name.
func (v *AppleVerifier) Verify(ctx context.Context, identityToken string, userBlob *string) (*domain.FederatedClaims, error) {
	if identityToken == "" {
		return nil, domain.NewValidationError("identityToken", "identityToken is required")
	}
	if v.allowMock && identityToken == MockAppleToken {
		return &domain.FederatedClaims{
			Provider: "apple",
			Subject:  "mock-apple-user",
			Email:    "apple_user@example.com",
			Name:     "Apple User",
		}, nil
	}
	if v.clientID == "" {
		return nil, fmt.Errorf("%w: Sign in with Apple is not configured", domain.ErrProviderUnavailable)
	}

	set, err := v.keys.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	tok, err := jwt.Parse([]byte(identityToken),
		jwt.WithKeySet(set),
		jwt.WithIssuer(AppleIssuer),
		jwt.WithAudience(v.clientID),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}

	var email string
	if err := tok.Get("email", &email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: email not found in Apple token", domain.ErrInvalidCredential)
	}
	subject, _ := tok.Subject()

	return &domain.FederatedClaims{
		Provider: "apple",
		Subject:  subject,
		Email:    email,
		Name:     AppleUserName(userBlob),
	}, nil
}

type appleUser struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
}

// AppleUserName extracts a display name from Apple's first sign-in user
// JSON. Malformed or missing input yields "".
func AppleUserName(blob *string) string {
	if blob == nil || *blob == "" {
		return ""
	}
	var u appleUser
	if err := json.Unmarshal([]byte(*blob), &u); err != nil {
		return ""
	}
	return strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
}
