// Package service implements identity resolution, session management and
// the send-message orchestration on top of the store and providers.
package service

import (
	"context"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/auth"
	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/policy"
	"github.com/Abdulkalam-AIML/titanbot/internal/repository"
)

// Completer streams a completion for an assembled conversation.
type Completer interface {
	Stream(ctx context.Context, turns []domain.Turn, opts completion.Options) iter.Seq[domain.Fragment]
}

// GoogleVerifier resolves a Google ID token to identity claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*domain.FederatedClaims, error)
}

// AppleVerifier resolves a Sign in with Apple identity token.
type AppleVerifier interface {
	Verify(ctx context.Context, identityToken string, userBlob *string) (*domain.FederatedClaims, error)
}

// Options tune the orchestrator.
type Options struct {
	// MaxHistoryTurns keeps only the most recent turns in the provider
	// payload. Zero means unbounded.
	MaxHistoryTurns int
	// TitleMaxChars is the length of titles derived from a first message.
	TitleMaxChars int
	// Persona is the system turn prepended to every conversation.
	Persona string
	// PersistTimeout bounds the assistant-turn write after streaming ends.
	PersistTimeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxHistoryTurns: 50,
		TitleMaxChars:   30,
		PersistTimeout:  5 * time.Second,
	}
}

type Service struct {
	store        repository.Store
	tokens       *auth.TokenIssuer
	google       GoogleVerifier
	apple        AppleVerifier
	completer    Completer
	policyEngine *policy.Engine
	opts         Options
	logger       zerolog.Logger

	verifyPassword func(password, hash string) bool
}

func New(store repository.Store, tokens *auth.TokenIssuer, google GoogleVerifier, apple AppleVerifier, completer Completer, policyEngine *policy.Engine, opts Options, logger zerolog.Logger) *Service {
	if opts.TitleMaxChars <= 0 {
		opts.TitleMaxChars = 30
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	return &Service{
		store:        store,
		tokens:       tokens,
		google:       google,
		apple:        apple,
		completer:    completer,
		policyEngine: policyEngine,
		opts:         opts,
		logger:       logger.With().Str("component", "service").Logger(),

		verifyPassword: auth.VerifyPassword,
	}
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Authorize checks the access policy for user and action.
func (s *Service) Authorize(ctx context.Context, user *domain.User, action string) error {
	return s.policyEngine.Authorize(ctx, user, action)
}
