package messages

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeEngineError      = "ENGINE_ERROR"
	ErrCodeSessionFailed    = "SESSION_FAILED"
	ErrCodeConnectionClosed = "CONNECTION_CLOSED"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// Message types
const (
	TypeTurn   = "turn"
	TypeStatus = "status"
	TypeError  = "error"
)

// Session statuses sent to the client
const (
	StatusConnected = "connected"
	StatusCommitted = "committed"
	StatusEscalated = "escalated"
	StatusHandedOff = "handed_off"
	StatusClosed    = "closed"
)

// ServerMessage represents a message sent to frontend client
type ServerMessage struct {
	Type      string      `json:"type"` // "turn", "status", "error"
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// TurnResponsePayload contains one assistant utterance
type TurnResponsePayload struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTurnMessage creates an assistant turn message
func NewTurnMessage(sessionID, text, language string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeTurn,
		SessionID: sessionID,
		Payload: TurnResponsePayload{
			Text:     text,
			Language: language,
		},
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
