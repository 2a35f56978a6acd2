// Package policy decides, after every turn, whether a session keeps
// clarifying, commits a reservation, or hands off to a human. Evaluate is a
// pure function of its input; all session state lives with the caller.
package policy

import (
	"fmt"
	"strings"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// State is one node of the session state machine.
type State string

const (
	StateGreeting           State = "GREETING"
	StateListening          State = "LISTENING"
	StateExtracting         State = "EXTRACTING"
	StateReadyToBook        State = "READY_TO_BOOK"
	StateNeedsClarification State = "NEEDS_CLARIFICATION"
	StateEscalated          State = "ESCALATED"
	StateCommitted          State = "COMMITTED"
	StateHandedOff          State = "HANDED_OFF"
)

// Terminal reports whether the state ends the session. Terminal states are
// never re-entered or left; a new guest interaction is a new session.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateHandedOff
}

var validNext = map[State][]State{
	StateGreeting:           {StateListening, StateEscalated},
	StateListening:          {StateExtracting, StateEscalated},
	StateExtracting:         {StateReadyToBook, StateNeedsClarification, StateEscalated},
	StateReadyToBook:        {StateCommitted, StateEscalated},
	StateNeedsClarification: {StateListening, StateEscalated},
	StateEscalated:          {StateHandedOff},
	StateCommitted:          {},
	StateHandedOff:          {},
}

// Transition validates a state change against the machine. Useful as a
// guard: a rejected transition is a programming error, not a guest-visible
// condition.
func Transition(from, to State) error {
	for _, next := range validNext[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", from, to)
}

// Config carries the tunable policy knobs, fixed at session start.
type Config struct {
	MaxTurns         int
	RequiredFields   []string
	UrgencyThreshold float64
}

// Input is everything the policy looks at for one turn.
type Input struct {
	Partial       booking.PartialReservation
	GuestTurns    int
	LastGuestText string
	Annotation    booking.Annotation
	EngineFailed  bool
}

// Decision is the policy outcome for a single turn. Reason is set only when
// Next is ESCALATED; Missing only when Next is NEEDS_CLARIFICATION.
type Decision struct {
	Next    State
	Reason  booking.EscalationReason
	Missing []string
}

// Evaluate runs the transition rules for one turn. Escalation triggers are
// checked first and strictly dominate completion: when both fire in the same
// turn the session hands off rather than committing.
func Evaluate(cfg Config, in Input) Decision {
	if in.EngineFailed {
		return Decision{Next: StateEscalated, Reason: booking.ReasonEngineUnavailable}
	}
	if RequestsHuman(in.LastGuestText) || in.Annotation.HumanRequest {
		return Decision{Next: StateEscalated, Reason: booking.ReasonGuestRequest}
	}
	if cfg.UrgencyThreshold > 0 && in.Annotation.Urgency >= cfg.UrgencyThreshold {
		return Decision{Next: StateEscalated, Reason: booking.ReasonUrgency}
	}
	if in.Partial.Complete(cfg.RequiredFields) {
		return Decision{Next: StateReadyToBook}
	}
	if cfg.MaxTurns > 0 && in.GuestTurns >= cfg.MaxTurns {
		return Decision{Next: StateEscalated, Reason: booking.ReasonMaxTurnsExceeded}
	}
	return Decision{Next: StateNeedsClarification, Missing: in.Partial.Missing(cfg.RequiredFields)}
}

// Phrases that count as an explicit request for a human. Matched on the
// lowercased guest utterance so the handoff never depends on the engine
// noticing.
var humanRequestPhrases = []string{
	"speak to a person",
	"talk to a person",
	"speak to a human",
	"talk to a human",
	"speak with a human",
	"speak to someone",
	"talk to someone",
	"real person",
	"human being",
	"a human please",
	"speak to the manager",
	"talk to the manager",
	"speak to reception",
	"speak to the receptionist",
	"talk to staff",
	"transfer me",
	"human agent",
	"an operator",
}

// RequestsHuman reports whether the utterance explicitly asks for a human
// receptionist.
func RequestsHuman(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range humanRequestPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
