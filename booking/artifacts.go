package booking

import (
	"time"

	"github.com/google/uuid"
)

// EscalationReason codes carried on EscalationEvent records.
type EscalationReason string

const (
	ReasonGuestRequest       EscalationReason = "guest_request"
	ReasonUrgency            EscalationReason = "urgency"
	ReasonMaxTurnsExceeded   EscalationReason = "max_turns_exceeded"
	ReasonEngineUnavailable  EscalationReason = "engine_unavailable"
	ReasonPersistenceFailure EscalationReason = "persistence_failure"
	ReasonDisconnected       EscalationReason = "disconnected"
)

// ReservationRecord is the committed snapshot of a completed reservation.
// Immutable once created and written exactly once; corrections are a new
// session, never an update.
type ReservationRecord struct {
	RecordID        string    `json:"record_id"`
	SessionID       string    `json:"session_id"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	GuestCount      int       `json:"guest_count"`
	GuestName       string    `json:"guest_name,omitempty"`
	Contact         string    `json:"contact,omitempty"`
	RoomType        string    `json:"room_type,omitempty"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewReservationRecord snapshots the present fields of a partial reservation
// into a record with a fresh id. The caller is responsible for having
// verified completeness first; absent optional fields stay empty.
func NewReservationRecord(sessionID string, p PartialReservation) ReservationRecord {
	rec := ReservationRecord{
		RecordID:  uuid.New().String(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if p.CheckIn.IsPresent() {
		rec.CheckIn = p.CheckIn.Value
	}
	if p.CheckOut.IsPresent() {
		rec.CheckOut = p.CheckOut.Value
	}
	if n, ok := p.GuestCount.IntValue(); ok {
		rec.GuestCount = n
	}
	if p.GuestName.IsPresent() {
		rec.GuestName = p.GuestName.Value
	}
	if p.Contact.IsPresent() {
		rec.Contact = p.Contact.Value
	}
	if p.RoomType.IsPresent() {
		rec.RoomType = p.RoomType.Value
	}
	if p.SpecialRequests.IsPresent() {
		rec.SpecialRequests = p.SpecialRequests.Value
	}
	return rec
}

// EscalationEvent is the handoff record for a session routed to a human
// receptionist. Partial data rides along for the receptionist's reference;
// it is never committed as a reservation.
type EscalationEvent struct {
	EventID       string             `json:"event_id"`
	SessionID     string             `json:"session_id"`
	Reason        EscalationReason   `json:"reason"`
	Contact       string             `json:"contact,omitempty"`
	Partial       PartialReservation `json:"partial"`
	TranscriptRef string             `json:"transcript_ref,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewEscalationEvent builds a handoff record. The contact number is taken
// from the partial data when the guest supplied one.
func NewEscalationEvent(sessionID string, reason EscalationReason, partial PartialReservation, transcriptRef string) EscalationEvent {
	ev := EscalationEvent{
		EventID:       uuid.New().String(),
		SessionID:     sessionID,
		Reason:        reason,
		Partial:       partial,
		TranscriptRef: transcriptRef,
		CreatedAt:     time.Now().UTC(),
	}
	if partial.Contact.IsPresent() {
		ev.Contact = partial.Contact.Value
	}
	return ev
}
