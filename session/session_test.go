package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/engine"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/policy"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/store"
)

// fakeTransport records outgoing turns and feeds incoming ones from a channel.
type fakeTransport struct {
	mu   sync.Mutex
	sent []string
	recv chan booking.Turn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recv: make(chan booking.Turn, 8)}
}

func (t *fakeTransport) ReceiveTurn(ctx context.Context) (booking.Turn, error) {
	select {
	case turn, ok := <-t.recv:
		if !ok {
			return booking.Turn{}, errors.New("transport closed")
		}
		return turn, nil
	case <-ctx.Done():
		return booking.Turn{}, ctx.Err()
	}
}

func (t *fakeTransport) SendTurn(ctx context.Context, text, language string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, text)
	return nil
}

func (t *fakeTransport) sentTurns() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// scriptedEngine returns canned replies in order, then repeats the last one.
type scriptedEngine struct {
	mu      sync.Mutex
	replies []engine.Reply
	calls   int
	history int
}

func (e *scriptedEngine) GenerateReply(ctx context.Context, history []booking.Turn) (engine.Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.history = len(history)
	i := e.calls - 1
	if i >= len(e.replies) {
		i = len(e.replies) - 1
	}
	return e.replies[i], nil
}

// failingEngine always errors.
type failingEngine struct {
	mu    sync.Mutex
	calls int
}

func (e *failingEngine) GenerateReply(ctx context.Context, history []booking.Turn) (engine.Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return engine.Reply{}, errors.New("model overloaded")
}

// blockingEngine parks until its context is cancelled.
type blockingEngine struct {
	started chan struct{}
}

func (e *blockingEngine) GenerateReply(ctx context.Context, history []booking.Turn) (engine.Reply, error) {
	close(e.started)
	<-ctx.Done()
	return engine.Reply{}, ctx.Err()
}

func say(text string) engine.Reply {
	return engine.Reply{Text: text, Language: "english"}
}

func testConfig() Config {
	return Config{
		HotelName:       "Hotel Bellevue",
		DefaultLanguage: "en",
		Policy: policy.Config{
			MaxTurns:         8,
			RequiredFields:   booking.DefaultRequiredFields,
			UrgencyThreshold: 0.8,
		},
		MaxGuestCount: booking.DefaultMaxGuestCount,
	}
}

func startSession(t *testing.T, eng engine.Engine, sink store.Sink, cfg Config) (*Session, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	s, err := New(tr, eng, sink, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, tr
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestSessionStartSendsGreeting(t *testing.T) {
	mem := store.NewMemory()
	s, tr := startSession(t, &scriptedEngine{replies: []engine.Reply{say("hello")}}, mem, testConfig())

	if got := s.State(); got != policy.StateListening {
		t.Fatalf("state after Start = %v, want LISTENING", got)
	}
	sent := tr.sentTurns()
	if len(sent) != 1 || !strings.Contains(sent[0], "Hotel Bellevue") {
		t.Fatalf("greeting not sent: %v", sent)
	}
	if turns := mem.Transcript(s.ID); len(turns) != 1 || turns[0].Speaker != booking.SpeakerAssistant {
		t.Fatalf("greeting not persisted: %v", turns)
	}
}

func TestOneTurnBookingCommits(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Wonderful, let me set that up for you.")}}
	s, tr := startSession(t, eng, mem, testConfig())

	checkIn, checkOut := futureDate(30), futureDate(33)
	utterance := fmt.Sprintf("Hello, I'd like to book a room from %s to %s for 2 people.", checkIn, checkOut)
	if err := s.OnGuestTurn(context.Background(), utterance); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	if got := s.State(); got != policy.StateCommitted {
		t.Fatalf("state = %v, want COMMITTED", got)
	}
	recs := mem.Reservations()
	if len(recs) != 1 {
		t.Fatalf("reservations = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.CheckIn != checkIn || rec.CheckOut != checkOut || rec.GuestCount != 2 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.SessionID != s.ID {
		t.Fatalf("record session = %q, want %q", rec.SessionID, s.ID)
	}
	if evs := mem.Escalations(); len(evs) != 0 {
		t.Fatalf("unexpected escalations: %v", evs)
	}
	if eng.history != 2 {
		t.Fatalf("engine saw %d turns of history, want 2 (greeting + guest)", eng.history)
	}
	sent := tr.sentTurns()
	if len(sent) != 3 || !strings.Contains(sent[2], "confirmed") {
		t.Fatalf("sends = %v, want greeting, reply, confirmation", sent)
	}

	// The session is terminal: further turns are a caller bug.
	if err := s.OnGuestTurn(context.Background(), "one more thing"); !errors.Is(err, booking.ErrSessionClosed) {
		t.Fatalf("turn after terminal = %v, want ErrSessionClosed", err)
	}
}

func TestHumanRequestHandsOff(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{
		say("Our doubles start at 120 euros a night."),
		say("Of course."),
	}}
	s, tr := startSession(t, eng, mem, testConfig())

	if err := s.OnGuestTurn(context.Background(), "What are your room rates?"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if got := s.State(); got != policy.StateListening {
		t.Fatalf("state after turn 1 = %v, want LISTENING", got)
	}
	if err := s.OnGuestTurn(context.Background(), "I need to speak to a person"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	evs := mem.Escalations()
	if len(evs) != 1 || evs[0].Reason != booking.ReasonGuestRequest {
		t.Fatalf("escalations = %+v, want one guest_request", evs)
	}
	if len(mem.Reservations()) != 0 {
		t.Fatalf("no reservation should be committed on handoff")
	}
	sent := tr.sentTurns()
	if !strings.Contains(sent[len(sent)-1], "colleague") {
		t.Fatalf("guest was not told about the handoff: %q", sent[len(sent)-1])
	}
}

func TestMaxTurnsEscalatesWithPartialData(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Could you give me your travel dates?")}}
	s, _ := startSession(t, eng, mem, testConfig())

	for i := 0; i < 8; i++ {
		err := s.OnGuestTurn(context.Background(), "We are four people")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	evs := mem.Escalations()
	if len(evs) != 1 || evs[0].Reason != booking.ReasonMaxTurnsExceeded {
		t.Fatalf("escalations = %+v, want one max_turns_exceeded", evs)
	}
	if n, ok := evs[0].Partial.GuestCount.IntValue(); !ok || n != 4 {
		t.Fatalf("partial guest count = %v, want 4 attached to the handoff", evs[0].Partial.GuestCount)
	}
	if len(mem.Reservations()) != 0 {
		t.Fatalf("partial data must never be committed")
	}
}

func TestFollowUpNamesMissingFields(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Happy to help with that.")}}
	s, tr := startSession(t, eng, mem, testConfig())

	if err := s.OnGuestTurn(context.Background(), "We are four people"); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	sent := tr.sentTurns()
	followUp := sent[len(sent)-1]
	if !strings.Contains(followUp, "check-in date") || !strings.Contains(followUp, "check-out date") {
		t.Fatalf("follow-up should name the missing dates: %q", followUp)
	}
	if strings.Contains(followUp, "how many guests") {
		t.Fatalf("follow-up should not ask for fields already given: %q", followUp)
	}
	if got := s.State(); got != policy.StateListening {
		t.Fatalf("state = %v, want LISTENING for another round", got)
	}
}

func TestEngineFailureEscalates(t *testing.T) {
	mem := store.NewMemory()
	eng := &failingEngine{}
	cfg := testConfig()
	cfg.EngineRetries = 1
	s, tr := startSession(t, eng, mem, cfg)

	if err := s.OnGuestTurn(context.Background(), "I'd like to book a room"); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	if eng.calls != 2 {
		t.Fatalf("engine calls = %d, want initial + 1 retry", eng.calls)
	}
	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	evs := mem.Escalations()
	if len(evs) != 1 || evs[0].Reason != booking.ReasonEngineUnavailable {
		t.Fatalf("escalations = %+v, want one engine_unavailable", evs)
	}
	if len(mem.Reservations()) != 0 {
		t.Fatalf("nothing may be committed on engine failure")
	}
	// The guest hears a handoff, never an error.
	sent := tr.sentTurns()
	last := sent[len(sent)-1]
	if strings.Contains(last, "overloaded") || strings.Contains(last, "error") {
		t.Fatalf("raw error leaked to the guest: %q", last)
	}
	if !strings.Contains(last, "colleague") {
		t.Fatalf("guest was not handed off politely: %q", last)
	}
}

func TestPastCheckInAsksForClarification(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Let me check that date.")}}
	s, tr := startSession(t, eng, mem, testConfig())

	if err := s.OnGuestTurn(context.Background(), "I'd like to check in on 2019-01-01"); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	partial := s.Partial()
	if partial.CheckIn.Status != booking.FieldInvalid {
		t.Fatalf("past check-in = %+v, want invalid", partial.CheckIn)
	}
	if got := s.State(); got != policy.StateListening {
		t.Fatalf("state = %v, want LISTENING (clarification loop)", got)
	}
	sent := tr.sentTurns()
	if !strings.Contains(sent[len(sent)-1], "check-in date") {
		t.Fatalf("follow-up should re-ask for the check-in date: %q", sent[len(sent)-1])
	}
	if len(mem.Reservations()) != 0 || len(mem.Escalations()) != 0 {
		t.Fatalf("no artifact expected mid-conversation")
	}
}

func TestEscalationDominatesCompletion(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Certainly.")}}
	s, _ := startSession(t, eng, mem, testConfig())

	utterance := fmt.Sprintf("Book %s to %s for 2 people. Actually, can I talk to a human?",
		futureDate(10), futureDate(12))
	if err := s.OnGuestTurn(context.Background(), utterance); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF (escalation wins the tie)", got)
	}
	if len(mem.Reservations()) != 0 {
		t.Fatalf("completion must lose to escalation in the same turn")
	}
	if evs := mem.Escalations(); len(evs) != 1 || evs[0].Reason != booking.ReasonGuestRequest {
		t.Fatalf("escalations = %+v", evs)
	}
}

func TestUrgencyAnnotationEscalates(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{{
		Text:       "I'm so sorry to hear that, let me get someone immediately.",
		Language:   "english",
		Annotation: booking.Annotation{Urgency: 0.95},
	}}}
	s, _ := startSession(t, eng, mem, testConfig())

	if err := s.OnGuestTurn(context.Background(), "There is water flooding my room!"); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	if evs := mem.Escalations(); len(evs) != 1 || evs[0].Reason != booking.ReasonUrgency {
		t.Fatalf("escalations = %+v, want one urgency", evs)
	}
}

func TestPersistenceFailureEscalates(t *testing.T) {
	mem := store.NewMemory()
	mem.FailReservationsWith(errors.New("disk full"))
	eng := &scriptedEngine{replies: []engine.Reply{say("All set, one moment.")}}
	s, tr := startSession(t, eng, mem, testConfig())

	utterance := fmt.Sprintf("A room from %s to %s for 2 people please", futureDate(5), futureDate(7))
	if err := s.OnGuestTurn(context.Background(), utterance); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	if len(mem.Reservations()) != 0 {
		t.Fatalf("failed write must not leave a reservation")
	}
	evs := mem.Escalations()
	if len(evs) != 1 || evs[0].Reason != booking.ReasonPersistenceFailure {
		t.Fatalf("escalations = %+v, want one persistence_failure", evs)
	}
	sent := tr.sentTurns()
	if strings.Contains(sent[len(sent)-1], "disk full") {
		t.Fatalf("raw error leaked to the guest: %q", sent[len(sent)-1])
	}
}

func TestCloseMidConversationRecordsDisconnect(t *testing.T) {
	mem := store.NewMemory()
	eng := &blockingEngine{started: make(chan struct{})}
	s, tr := startSession(t, eng, mem, testConfig())

	done := make(chan error, 1)
	go func() {
		done <- s.OnGuestTurn(context.Background(), "I'd like a room for 3 people")
	}()

	<-eng.started
	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("OnGuestTurn after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pipeline did not unwind after Close")
	}

	if got := s.State(); got != policy.StateHandedOff {
		t.Fatalf("state = %v, want HANDED_OFF", got)
	}
	evs := mem.Escalations()
	if len(evs) != 1 || evs[0].Reason != booking.ReasonDisconnected {
		t.Fatalf("escalations = %+v, want one disconnected", evs)
	}
	// The channel is gone; the guest hears nothing extra.
	if sent := tr.sentTurns(); len(sent) != 1 {
		t.Fatalf("sends after disconnect = %v, want just the greeting", sent)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	s, _ := startSession(t, &scriptedEngine{replies: []engine.Reply{say("hi")}}, mem, testConfig())

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if evs := mem.Escalations(); len(evs) != 1 {
		t.Fatalf("escalations = %d, want exactly one artifact", len(evs))
	}
}

func TestRunLoopDrivesSessionToCommit(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Booking that now.")}}
	s, tr := startSession(t, eng, mem, testConfig())

	go s.Run(context.Background())

	utterance := fmt.Sprintf("Please book %s to %s for 2 guests", futureDate(14), futureDate(16))
	tr.recv <- booking.Turn{Speaker: booking.SpeakerGuest, Text: utterance}

	select {
	case <-s.CloseChan:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not reach a terminal state")
	}

	if got := s.State(); got != policy.StateCommitted {
		t.Fatalf("state = %v, want COMMITTED", got)
	}
	if len(mem.Reservations()) != 1 {
		t.Fatalf("reservations = %d, want 1", len(mem.Reservations()))
	}
}

func TestEveryTurnIsPersisted(t *testing.T) {
	mem := store.NewMemory()
	eng := &scriptedEngine{replies: []engine.Reply{say("Of course.")}}
	s, _ := startSession(t, eng, mem, testConfig())

	if err := s.OnGuestTurn(context.Background(), "Do you have parking?"); err != nil {
		t.Fatalf("OnGuestTurn: %v", err)
	}

	// greeting, guest turn, reply, follow-up
	turns := mem.Transcript(s.ID)
	if len(turns) != 4 {
		t.Fatalf("persisted turns = %d, want 4", len(turns))
	}
	if turns[1].Speaker != booking.SpeakerGuest || turns[1].Text != "Do you have parking?" {
		t.Fatalf("guest turn not persisted in order: %+v", turns[1])
	}
}
