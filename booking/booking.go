package booking

import (
	"errors"
	"time"
)

// ErrSessionClosed is returned when a turn is delivered to a session that
// already reached a terminal state. This is a caller bug, not a guest-facing
// condition, so it is always surfaced.
var ErrSessionClosed = errors.New("session closed")

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerGuest     Speaker = "guest"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance with its detected language and timestamp.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Annotation is the dialogue engine's self-report alongside a reply. It is
// untrusted input: a missing annotation reads as the zero value and the
// policy treats it as "nothing signalled".
type Annotation struct {
	Urgency      float64 `json:"urgency"`
	HumanRequest bool    `json:"human_request"`
}

// Conversation is the ordered sequence of turns for one session. It is
// mutated only by appending and owned exclusively by that session.
type Conversation struct {
	startedAt time.Time
	turns     []Turn
}

// NewConversation creates an empty conversation anchored at start. The
// anchor is what date validation measures "past" against.
func NewConversation(start time.Time) *Conversation {
	return &Conversation{startedAt: start}
}

// StartedAt returns the conversation anchor timestamp.
func (c *Conversation) StartedAt() time.Time {
	return c.startedAt
}

// Append adds a turn at the end of the conversation.
func (c *Conversation) Append(t Turn) {
	c.turns = append(c.turns, t)
}

// Turns returns the turns in arrival order. Callers must not modify the
// returned slice.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

// Len returns the total number of turns, both speakers included.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// GuestTurns returns how many guest turns have arrived so far. The
// clarification-loop cap counts these, not assistant turns.
func (c *Conversation) GuestTurns() int {
	n := 0
	for _, t := range c.turns {
		if t.Speaker == SpeakerGuest {
			n++
		}
	}
	return n
}

// LastGuestTurn returns the most recent guest turn, if any.
func (c *Conversation) LastGuestTurn() (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Speaker == SpeakerGuest {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}
