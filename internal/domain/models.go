package domain

import "time"

// User is an authenticated account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ChatSession is an owned, ordered conversation thread.
type ChatSession struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single persisted turn within a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is a role-tagged piece of conversation sent to a completion provider.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Fragment is one piece of streamed completion output.
// Diagnostic fragments carry a terminal failure description in-band.
type Fragment struct {
	Text       string `json:"text"`
	Diagnostic bool   `json:"diagnostic,omitempty"`
}

// FederatedClaims are the verified identity attributes returned by a
// third-party identity provider.
type FederatedClaims struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}
