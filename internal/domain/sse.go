package domain

// SSE event names used when a client asks for framed output.
const (
	SSEEventSession = "session"
	SSEEventDelta   = "delta"
	SSEEventError   = "error"
	SSEEventDone    = "done"
)

// SessionEventData announces the session a stream belongs to.
type SessionEventData struct {
	SessionID int64  `json:"session_id"`
	Title     string `json:"title"`
}

// DeltaEventData is the data for a delta SSE event.
type DeltaEventData struct {
	Text string `json:"text"`
}

// ErrorEventData is the data for an error SSE event.
type ErrorEventData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DoneEventData is the data for a done SSE event.
type DoneEventData struct {
	SessionID  int64 `json:"session_id"`
	Fragments  int   `json:"fragments"`
	DurationMs int64 `json:"duration_ms"`
}

// WebSocket message types.
const (
	WSTypeHello    = "hello"
	WSTypeHelloAck = "hello_ack"
	WSTypeSend     = "send"
	WSTypeSession  = "session"
	WSTypeDelta    = "delta"
	WSTypeDone     = "done"
	WSTypeError    = "error"
)

// WSMessage is the single envelope exchanged over the chat WebSocket.
type WSMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	Token     string `json:"token,omitempty"`
	SessionID *int64 `json:"session_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	Model     string `json:"model,omitempty"`
	Text      string `json:"text,omitempty"`
	Code      string `json:"code,omitempty"`
}

// WS error codes.
const (
	WSErrorInvalidMessage = "invalid_message"
	WSErrorUnauthorized   = "unauthorized"
	WSErrorHelloRequired  = "hello_required"
	WSErrorNotFound       = "not_found"
	WSErrorRateLimited    = "rate_limited"
	WSErrorProvider       = "provider_failure"
	WSErrorInternal       = "internal_error"
)
