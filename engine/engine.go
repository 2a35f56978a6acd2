// Package engine wraps the dialogue models that phrase the receptionist's
// replies. Engines only turn conversation history into one utterance; every
// decision about booking or escalation stays outside, so a misbehaving model
// can never commit a reservation on its own.
package engine

import (
	"context"
	"errors"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// ErrEmptyReply is returned when the model produced no usable text.
var ErrEmptyReply = errors.New("engine returned an empty reply")

// Reply is one assistant utterance, already stripped of its annotation
// trailer.
type Reply struct {
	Text       string
	Language   string
	Annotation booking.Annotation
}

// Engine produces the next assistant utterance for a conversation.
type Engine interface {
	GenerateReply(ctx context.Context, history []booking.Turn) (Reply, error)
}
