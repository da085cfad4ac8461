package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Abdulkalam-AIML/titanbot/internal/auth"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/metrics"
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same bcrypt work as a real comparison so an
// unknown email or a password-less account cannot be told apart from a
// wrong password by timing.
func (s *Service) burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("titanbot-timing-equalizer")
	})
	s.verifyPassword(password, dummyHash)
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := auth.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "a valid email is required")
	}
	if req.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         domain.UserRoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.UsersRegistered.WithLabelValues("password").Inc()
	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login checks a password. Unknown emails and wrong passwords return the
// same error.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.burnPasswordCheck(req.Password)
		return nil, domain.ErrInvalidCredential
	}
	if !s.verifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}
	return user, nil
}

// LoginGoogle verifies a Google ID token and resolves its account.
func (s *Service) LoginGoogle(ctx context.Context, req domain.GoogleLoginRequest) (*domain.User, error) {
	claims, err := s.google.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return s.LoginOrCreateFederated(ctx, claims)
}

// LoginApple verifies an Apple identity token and resolves its account.
func (s *Service) LoginApple(ctx context.Context, req domain.AppleLoginRequest) (*domain.User, error) {
	claims, err := s.apple.Verify(ctx, req.IdentityToken, req.User)
	if err != nil {
		return nil, err
	}
	return s.LoginOrCreateFederated(ctx, claims)
}

// LoginOrCreateFederated finds the account for a verified email or creates
// a password-less one. Concurrent first logins converge on one account.
func (s *Service) LoginOrCreateFederated(ctx context.Context, claims *domain.FederatedClaims) (*domain.User, error) {
	email := auth.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user = &domain.User{
		Email:     email,
		FullName:  claims.Name,
		AvatarURL: claims.AvatarURL,
		Role:      domain.UserRoleUser,
		IsActive:  true,
	}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, domain.ErrEmailTaken) {
		winner, getErr := s.store.GetUserByEmail(ctx, email)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load user: %w", getErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("failed to resolve account for %s", claims.Provider)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.UsersRegistered.WithLabelValues(claims.Provider).Inc()
	s.logger.Info().Int64("user_id", user.ID).Str("provider", claims.Provider).Msg("federated user created")
	return user, nil
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *domain.User) (*domain.TokenResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to its user. Any token failure is
// domain.ErrInvalidCredential.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	user, _, err := s.AuthenticateUntil(ctx, token)
	return user, err
}

// AuthenticateUntil is Authenticate for long-lived connections: it also
// returns when the token stops being valid.
func (s *Service) AuthenticateUntil(ctx context.Context, token string) (*domain.User, time.Time, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, time.Time{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, time.Time{}, err
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, time.Time{}, domain.ErrInvalidCredential
	}
	return user, claims.ExpiresAt.Time, nil
}

// ListUsers lists every account.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
