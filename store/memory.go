package store

import (
	"context"
	"sync"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Memory keeps artifacts in process memory. It backs the tests and serves
// as the fallback when no durable backend is configured.
type Memory struct {
	mu               sync.Mutex
	reservations     map[string]booking.ReservationRecord
	reservationOrder []string
	escalations      map[string]booking.EscalationEvent
	escalationOrder  []string
	transcripts      map[string][]booking.Turn
	seenTurns        map[string]bool

	reservationErr error
	escalationErr  error
}

func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[string]booking.ReservationRecord),
		escalations:  make(map[string]booking.EscalationEvent),
		transcripts:  make(map[string][]booking.Turn),
		seenTurns:    make(map[string]bool),
	}
}

// FailReservationsWith makes subsequent reservation writes return err. The
// tests use it to drive the persistence failure path; pass nil to heal.
func (m *Memory) FailReservationsWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservationErr = err
}

// FailEscalationsWith makes subsequent escalation writes return err.
func (m *Memory) FailEscalationsWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationErr = err
}

func (m *Memory) WriteReservation(ctx context.Context, rec booking.ReservationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reservationErr != nil {
		return m.reservationErr
	}
	if _, ok := m.reservations[rec.RecordID]; ok {
		return nil
	}
	m.reservations[rec.RecordID] = rec
	m.reservationOrder = append(m.reservationOrder, rec.RecordID)
	return nil
}

func (m *Memory) WriteEscalation(ctx context.Context, ev booking.EscalationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.escalationErr != nil {
		return m.escalationErr
	}
	if _, ok := m.escalations[ev.EventID]; ok {
		return nil
	}
	m.escalations[ev.EventID] = ev
	m.escalationOrder = append(m.escalationOrder, ev.EventID)
	return nil
}

func (m *Memory) AppendTranscriptTurn(ctx context.Context, sessionID string, turn booking.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionID + "|" + turn.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + string(turn.Speaker)
	if m.seenTurns[key] {
		return nil
	}
	m.seenTurns[key] = true
	m.transcripts[sessionID] = append(m.transcripts[sessionID], turn)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Reservations returns stored reservations in write order.
func (m *Memory) Reservations() []booking.ReservationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]booking.ReservationRecord, 0, len(m.reservationOrder))
	for _, id := range m.reservationOrder {
		out = append(out, m.reservations[id])
	}
	return out
}

// Escalations returns stored escalations in write order.
func (m *Memory) Escalations() []booking.EscalationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]booking.EscalationEvent, 0, len(m.escalationOrder))
	for _, id := range m.escalationOrder {
		out = append(out, m.escalations[id])
	}
	return out
}

// Transcript returns the stored turns for one session in append order.
func (m *Memory) Transcript(sessionID string) []booking.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]booking.Turn(nil), m.transcripts[sessionID]...)
}
