package messages

import "encoding/json"

// ClientMessage represents a message from frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "turn", "control"
	Payload json.RawMessage `json:"payload"`
}

// TurnPayload contains one guest utterance
type TurnPayload struct {
	Text string `json:"text"`
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "end"
}
