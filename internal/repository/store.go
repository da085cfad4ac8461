// Package repository provides persistence for users, chat sessions and turns.
package repository

import (
	"context"
	"strings"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// Store defines the interface for data persistence.
//
// Getters return (nil, nil) when the row does not exist. GetSession and
// DeleteSession are ownership-checked: a session owned by another user is
// reported exactly like a missing one.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// Session operations
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, sessionID, userID int64) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID int64) ([]domain.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID, userID int64) (bool, error)

	// Message operations
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open picks a Store implementation from the DSN scheme. postgres:// and
// postgresql:// URLs use Postgres; anything else is treated as a SQLite DSN,
// with a leading sqlite:/// stripped.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn)
	}
	return NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite:///"))
}
