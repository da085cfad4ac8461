package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "New Chat"

// CreateSession creates an empty session for user.
func (s *Service) CreateSession(ctx context.Context, user *domain.User, req domain.CreateSessionRequest) (*domain.ChatSession, error) {
	title := req.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultSessionTitle
	}
	session := &domain.ChatSession{UserID: user.ID, Title: title}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ListSessions returns user's sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, user *domain.User) ([]domain.ChatSession, error) {
	sessions, err := s.store.ListSessions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a session owned by user, or domain.ErrNotFound.
func (s *Service) GetSession(ctx context.Context, user *domain.User, sessionID int64) (*domain.ChatSession, error) {
	session, err := s.store.GetSession(ctx, sessionID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// ListMessages returns a session's turns in creation order.
func (s *Service) ListMessages(ctx context.Context, user *domain.User, sessionID int64) ([]domain.Message, error) {
	if _, err := s.GetSession(ctx, user, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// DeleteSession removes a session and its turns.
func (s *Service) DeleteSession(ctx context.Context, user *domain.User, sessionID int64) error {
	deleted, err := s.store.DeleteSession(ctx, sessionID, user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
