package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// SQLite persists artifacts in a local SQLite database. Every insert uses
// INSERT OR IGNORE keyed on the artifact identity, so retried writes are
// no-ops.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			record_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			check_in TEXT NOT NULL,
			check_out TEXT NOT NULL,
			guest_count INTEGER NOT NULL,
			guest_name TEXT,
			contact TEXT,
			room_type TEXT,
			special_requests TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS escalations (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			contact TEXT,
			partial TEXT NOT NULL,
			transcript_ref TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transcript_turns (
			session_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			language TEXT,
			PRIMARY KEY (session_id, ts, speaker)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_session ON reservations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_session ON escalations(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLite) WriteReservation(ctx context.Context, rec booking.ReservationRecord) error {
	query := `INSERT OR IGNORE INTO reservations
	          (record_id, session_id, check_in, check_out, guest_count, guest_name, contact, room_type, special_requests, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.RecordID, rec.SessionID, rec.CheckIn, rec.CheckOut, rec.GuestCount,
		rec.GuestName, rec.Contact, rec.RoomType, rec.SpecialRequests, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store reservation: %w", err)
	}
	return nil
}

func (s *SQLite) WriteEscalation(ctx context.Context, ev booking.EscalationEvent) error {
	partial, err := sonic.Marshal(ev.Partial)
	if err != nil {
		return fmt.Errorf("failed to marshal partial: %w", err)
	}

	query := `INSERT OR IGNORE INTO escalations
	          (event_id, session_id, reason, contact, partial, transcript_ref, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		ev.EventID, ev.SessionID, string(ev.Reason), ev.Contact, string(partial), ev.TranscriptRef, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store escalation: %w", err)
	}
	return nil
}

func (s *SQLite) AppendTranscriptTurn(ctx context.Context, sessionID string, turn booking.Turn) error {
	query := `INSERT OR IGNORE INTO transcript_turns (session_id, ts, speaker, text, language)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		sessionID, turn.Timestamp.UTC().Format(time.RFC3339Nano), string(turn.Speaker), turn.Text, turn.Language)
	if err != nil {
		return fmt.Errorf("failed to store transcript turn: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
