package domain

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest is the body of POST /auth/google.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// AppleLoginRequest is the body of POST /auth/apple.
// User is the JSON blob Apple hands the client on first sign-in only.
type AppleLoginRequest struct {
	IdentityToken string  `json:"identityToken"`
	User          *string `json:"user,omitempty"`
}

// TokenResponse is returned by every successful authentication.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateSessionRequest is the body of POST /chat/sessions.
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest is the body of POST /chat/send.
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID *int64 `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
