package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  Input
		expect string
	}{
		{"user reads own sessions", Input{Role: "user", Active: true, Action: domain.ActionSessionsRead}, DecisionAllow},
		{"user sends", Input{Role: "user", Active: true, Action: domain.ActionChatSend}, DecisionAllow},
		{"user lists users", Input{Role: "user", Active: true, Action: domain.ActionUsersList}, DecisionDeny},
		{"admin lists users", Input{Role: "admin", Active: true, Action: domain.ActionUsersList}, DecisionAllow},
		{"inactive user", Input{Role: "user", Active: false, Action: domain.ActionUsersMe}, DecisionDeny},
		{"inactive admin", Input{Role: "admin", Active: false, Action: domain.ActionUsersList}, DecisionDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, decision)
		})
	}
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	user := &domain.User{Role: domain.UserRoleUser, IsActive: true}
	assert.NoError(t, engine.Authorize(ctx, user, domain.ActionUsersMe))
	assert.ErrorIs(t, engine.Authorize(ctx, user, domain.ActionUsersList), domain.ErrForbidden)

	admin := &domain.User{Role: domain.UserRoleAdmin, IsActive: true}
	assert.NoError(t, engine.Authorize(ctx, admin, domain.ActionUsersList))
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package access_policy\n decision = {")
	assert.Error(t, err)
}

func TestUndefinedDecisionDenies(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, "package access_policy\n\ndecision = \"allow\" {\n\tinput.action == \"x\"\n}\n")
	require.NoError(t, err)

	decision, err := engine.Evaluate(ctx, Input{Action: "y"})
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision)
}
