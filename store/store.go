// Package store persists what a conversation leaves behind: reservation
// records, escalation events and the turn-by-turn transcript.
package store

import (
	"context"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Sink is the write side of persistence. Implementations must be idempotent
// per artifact ID: writing the same reservation or escalation twice stores
// it once, so a retried commit can never double-book a guest.
type Sink interface {
	WriteReservation(ctx context.Context, rec booking.ReservationRecord) error
	WriteEscalation(ctx context.Context, ev booking.EscalationEvent) error
	AppendTranscriptTurn(ctx context.Context, sessionID string, turn booking.Turn) error
	Close() error
}
