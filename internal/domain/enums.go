// Package domain defines the core domain models for the chat backend.
package domain

// Role represents the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known turn role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// UserRole represents the access level of a user.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Action names evaluated by the access policy.
const (
	ActionUsersMe       = "users.me"
	ActionUsersList     = "users.list"
	ActionSessionsRead  = "sessions.read"
	ActionSessionsWrite = "sessions.write"
	ActionChatSend      = "chat.send"
)

// SendState is a step of the send-message state machine.
type SendState string

const (
	SendStateResolveSession   SendState = "resolve_session"
	SendStatePersistUserTurn  SendState = "persist_user_turn"
	SendStateBuildContext     SendState = "build_context"
	SendStateStreamCompletion SendState = "stream_completion"
	SendStateDone             SendState = "done"
)
