// Package session owns the lifecycle of one guest conversation: it runs the
// turn loop, sequences the dialogue engine, extractor and escalation policy,
// and emits exactly one terminal artifact per session — a reservation record
// or an escalation event, never both.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/engine"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/extract"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/policy"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/store"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/transcript"
)

// persistTimeout bounds artifact writes at session end. They run on a fresh
// context: a dropped call must not abort persistence.
const persistTimeout = 5 * time.Second

// Transport delivers guest utterances and carries assistant utterances back.
// It is channel-agnostic; the WebSocket adapter lives in the server package.
type Transport interface {
	ReceiveTurn(ctx context.Context) (booking.Turn, error)
	SendTurn(ctx context.Context, text, language string) error
}

// Config carries the per-session knobs, fixed at session start.
type Config struct {
	HotelName       string
	DefaultLanguage string
	Policy          policy.Config
	MaxGuestCount   int
	EngineRetries   int

	// TranscriptDir enables the per-session transcript files when set.
	TranscriptDir string
	// Translate renders transcript lines into English for the bilingual
	// copy written at session end. Nil disables it.
	Translate transcript.TranslateFunc
}

// Session drives one guest interaction from greeting to terminal state.
type Session struct {
	ID        string
	CreatedAt time.Time
	CloseChan chan struct{}

	transport Transport
	engine    engine.Engine
	sink      store.Sink
	cfg       Config

	conv *booking.Conversation
	tlog *transcript.Logger

	// pipeMu serializes Start, OnGuestTurn and Close: within a session turns
	// are strictly sequential and at most one engine call is in flight.
	pipeMu sync.Mutex

	mu           sync.RWMutex
	state        policy.State
	partial      booking.PartialReservation
	lastActivity time.Time
	artifact     bool
	closed       bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a session in the GREETING state. It does not touch the
// transport; call Start to send the opening utterance.
func New(transport Transport, eng engine.Engine, sink store.Sink, cfg Config) (*Session, error) {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.Policy.MaxTurns == 0 {
		cfg.Policy.MaxTurns = booking.DefaultMaxTurns
	}
	if len(cfg.Policy.RequiredFields) == 0 {
		cfg.Policy.RequiredFields = booking.DefaultRequiredFields
	}
	if cfg.MaxGuestCount == 0 {
		cfg.MaxGuestCount = booking.DefaultMaxGuestCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		CloseChan:    make(chan struct{}),
		transport:    transport,
		engine:       eng,
		sink:         sink,
		cfg:          cfg,
		conv:         booking.NewConversation(now),
		state:        policy.StateGreeting,
		partial:      booking.EmptyPartial(),
		lastActivity: now,
		ctx:          ctx,
		cancel:       cancel,
	}

	if cfg.TranscriptDir != "" {
		tlog, err := transcript.New(cfg.TranscriptDir, s.ID, now)
		if err != nil {
			cancel()
			return nil, err
		}
		s.tlog = tlog
		if err := tlog.AddSystem("Session started", now); err != nil {
			log.Printf("⚠️ [%s] Failed to write transcript: %v", s.ID[:8], err)
		}
	}

	return s, nil
}

// Start sends the localized greeting and moves the session to LISTENING.
func (s *Session) Start(ctx context.Context) error {
	s.pipeMu.Lock()
	defer s.pipeMu.Unlock()

	s.mu.RLock()
	state, closed := s.state, s.closed
	s.mu.RUnlock()
	if closed {
		return booking.ErrSessionClosed
	}
	if state != policy.StateGreeting {
		return fmt.Errorf("session already started (state %s)", state)
	}

	greeting := Greeting(s.cfg.DefaultLanguage, s.cfg.HotelName)
	s.sendAssistant(ctx, greeting, s.cfg.DefaultLanguage)
	s.setState(policy.StateListening)
	log.Printf("🚀 [%s] Session started", s.ID[:8])
	return nil
}

// OnGuestTurn runs the pipeline for one guest utterance: append, generate a
// reply, extract, evaluate the policy, apply its decision. Utterances must
// arrive in order; calling it on a terminal session returns
// booking.ErrSessionClosed.
func (s *Session) OnGuestTurn(ctx context.Context, utterance string) error {
	s.pipeMu.Lock()
	defer s.pipeMu.Unlock()

	s.mu.RLock()
	state, closed := s.state, s.closed
	s.mu.RUnlock()
	if closed || state.Terminal() {
		return booking.ErrSessionClosed
	}

	// Tie this pipeline run to the session's own lifetime so an external
	// Close aborts an in-flight engine call.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	guest := booking.Turn{Speaker: booking.SpeakerGuest, Text: utterance, Timestamp: time.Now()}
	s.conv.Append(guest)
	s.persistTurn(guest)
	s.touch()
	log.Printf("📥 [%s] Guest: %s", s.ID[:8], utterance)
	s.setState(policy.StateExtracting)

	reply, err := engine.GenerateWithRetry(ctx, s.engine, s.conv.Turns(), s.cfg.EngineRetries)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("🔌 [%s] Session cancelled mid-turn", s.ID[:8])
			s.handOff(ctx, booking.ReasonDisconnected, false)
			s.finish()
			return nil
		}
		log.Printf("❌ [%s] Engine failed after retries: %v", s.ID[:8], err)
		decision := policy.Evaluate(s.cfg.Policy, policy.Input{EngineFailed: true})
		s.handOff(ctx, decision.Reason, true)
		s.finish()
		return nil
	}
	log.Printf("🤖 [%s] Assistant: %s", s.ID[:8], reply.Text)
	s.sendAssistant(ctx, reply.Text, reply.Language)

	partial := extract.Extract(s.conv.Turns(), extract.Options{
		Reference:     s.conv.StartedAt(),
		MaxGuestCount: s.cfg.MaxGuestCount,
	})
	s.mu.Lock()
	s.partial = partial
	s.mu.Unlock()

	decision := policy.Evaluate(s.cfg.Policy, policy.Input{
		Partial:       partial,
		GuestTurns:    s.conv.GuestTurns(),
		LastGuestText: utterance,
		Annotation:    reply.Annotation,
	})

	switch decision.Next {
	case policy.StateReadyToBook:
		s.setState(policy.StateReadyToBook)
		s.commit(ctx)
		s.finish()

	case policy.StateEscalated:
		s.handOff(ctx, decision.Reason, true)
		s.finish()

	case policy.StateNeedsClarification:
		s.setState(policy.StateNeedsClarification)
		followUp := FollowUp(decision.Missing)
		log.Printf("📋 [%s] Missing fields %v, asking follow-up", s.ID[:8], decision.Missing)
		s.sendAssistant(ctx, followUp, reply.Language)
		s.setState(policy.StateListening)
	}

	return nil
}

// Run receives guest turns from the transport until the session reaches a
// terminal state or the transport fails. A transport failure before a
// terminal state is a dropped call: the session hands off with reason
// disconnected instead of discarding partial data.
func (s *Session) Run(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.CloseChan:
		}
	}()

	for {
		turn, err := s.transport.ReceiveTurn(ctx)
		if err != nil {
			if !s.IsClosed() {
				log.Printf("🔌 [%s] Transport closed: %v", s.ID[:8], err)
			}
			s.Close()
			return
		}
		if err := s.OnGuestTurn(ctx, turn.Text); err != nil {
			return
		}
		if s.IsClosed() {
			return
		}
	}
}

// Close terminates the session. Closing before a terminal state records a
// handoff with reason disconnected, so the partial data survives the drop.
// Safe to call more than once.
func (s *Session) Close() error {
	s.cancel()

	s.pipeMu.Lock()
	defer s.pipeMu.Unlock()

	s.mu.RLock()
	state, closed := s.state, s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}
	if !state.Terminal() {
		s.handOff(context.Background(), booking.ReasonDisconnected, false)
	}
	s.finish()
	return nil
}

// State returns the session's current state.
func (s *Session) State() policy.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Partial returns the latest extracted reservation data.
func (s *Session) Partial() booking.PartialReservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partial
}

// LastActivity returns when the session last processed a turn.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// IsClosed returns whether the session is closed
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// TranscriptPath returns the transcript file path, or a session reference
// when file transcripts are disabled.
func (s *Session) TranscriptPath() string {
	if s.tlog != nil {
		return s.tlog.Path()
	}
	return "session:" + s.ID
}

// commit writes the reservation record and confirms to the guest. A write
// failure escalates with reason persistence_failure: a guest request is
// never silently lost.
func (s *Session) commit(ctx context.Context) {
	s.mu.RLock()
	artifact, partial := s.artifact, s.partial
	s.mu.RUnlock()
	if artifact {
		return
	}

	rec := booking.NewReservationRecord(s.ID, partial)
	wctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.WriteReservation(wctx, rec); err != nil {
		log.Printf("❌ [%s] Failed to persist reservation: %v", s.ID[:8], err)
		s.handOff(ctx, booking.ReasonPersistenceFailure, true)
		return
	}

	s.mu.Lock()
	s.artifact = true
	s.mu.Unlock()
	s.setState(policy.StateCommitted)
	s.sendAssistant(ctx, Confirmation(rec), s.cfg.DefaultLanguage)
	log.Printf("✅ [%s] Reservation committed: %s (%s → %s, %d guests)",
		s.ID[:8], rec.RecordID[:8], rec.CheckIn, rec.CheckOut, rec.GuestCount)
}

// handOff escalates the session: writes the escalation event with the
// partial data attached and, when the channel is still up, tells the guest
// a colleague is taking over.
func (s *Session) handOff(ctx context.Context, reason booking.EscalationReason, tellGuest bool) {
	s.mu.RLock()
	artifact, partial := s.artifact, s.partial
	s.mu.RUnlock()
	if artifact {
		return
	}

	s.setState(policy.StateEscalated)
	ev := booking.NewEscalationEvent(s.ID, reason, partial, s.TranscriptPath())
	wctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.WriteEscalation(wctx, ev); err != nil {
		log.Printf("❌ [%s] Failed to persist escalation (%s): %v", s.ID[:8], reason, err)
	}

	s.mu.Lock()
	s.artifact = true
	s.mu.Unlock()
	if tellGuest {
		s.sendAssistant(ctx, HandoffMessage(reason), s.cfg.DefaultLanguage)
	}
	s.setState(policy.StateHandedOff)
	log.Printf("🚨 [%s] Session handed off: %s", s.ID[:8], reason)
}

// sendAssistant appends an assistant turn, persists it and sends it out.
// Transport failures are logged, not surfaced: the conversation record
// matters more than one undelivered line.
func (s *Session) sendAssistant(ctx context.Context, text, language string) {
	turn := booking.Turn{
		Speaker:   booking.SpeakerAssistant,
		Text:      text,
		Language:  language,
		Timestamp: time.Now(),
	}
	s.conv.Append(turn)
	s.persistTurn(turn)
	s.touch()
	if err := s.transport.SendTurn(ctx, text, language); err != nil {
		log.Printf("⚠️ [%s] Failed to send turn: %v", s.ID[:8], err)
	}
}

// persistTurn appends one turn to the sink transcript and the session file.
// It runs on a fresh context so a dropped call cannot lose transcript lines.
func (s *Session) persistTurn(turn booking.Turn) {
	wctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.AppendTranscriptTurn(wctx, s.ID, turn); err != nil {
		log.Printf("⚠️ [%s] Failed to persist transcript turn: %v", s.ID[:8], err)
	}
	if s.tlog != nil {
		if err := s.tlog.AddTurn(turn); err != nil {
			log.Printf("⚠️ [%s] Failed to write transcript: %v", s.ID[:8], err)
		}
	}
}

// setState applies a state machine transition, refusing invalid ones.
func (s *Session) setState(to policy.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := policy.Transition(s.state, to); err != nil {
		log.Printf("⚠️ [%s] %v", s.ID[:8], err)
		return
	}
	s.state = to
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// finish marks the session closed and finalizes the transcript files. The
// translated copy is produced here, once, over the full conversation —
// never per turn.
func (s *Session) finish() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	close(s.CloseChan)

	if s.tlog != nil {
		if err := s.tlog.AddSystem("Session ended", time.Now()); err != nil {
			log.Printf("⚠️ [%s] Failed to write transcript: %v", s.ID[:8], err)
		}
		if _, err := s.tlog.SaveFull(); err != nil {
			log.Printf("⚠️ [%s] Failed to save transcript: %v", s.ID[:8], err)
		}
		if _, err := s.tlog.SaveJSON(); err != nil {
			log.Printf("⚠️ [%s] Failed to save JSON transcript: %v", s.ID[:8], err)
		}
		if s.cfg.Translate != nil {
			if _, err := s.tlog.SaveTranslated(s.cfg.Translate); err != nil {
				log.Printf("⚠️ [%s] Failed to save translated transcript: %v", s.ID[:8], err)
			}
		}
	}

	log.Printf("🔌 [%s] Session closed in state %s", s.ID[:8], s.State())
}
