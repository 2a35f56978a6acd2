package booking

import (
	"strconv"
	"time"
)

// Reservation field names as they appear in configuration and sink records.
const (
	FieldCheckIn         = "check_in"
	FieldCheckOut        = "check_out"
	FieldGuestCount      = "guest_count"
	FieldGuestName       = "guest_name"
	FieldContact         = "contact"
	FieldRoomType        = "room_type"
	FieldSpecialRequests = "special_requests"
)

// DefaultRequiredFields is the minimal set a reservation needs before it can
// be committed.
var DefaultRequiredFields = []string{FieldCheckIn, FieldCheckOut, FieldGuestCount}

// Domain defaults shared by configuration and the extraction rules.
const (
	DefaultMaxTurns      = 8
	DefaultMaxGuestCount = 20
)

var knownFields = map[string]bool{
	FieldCheckIn:         true,
	FieldCheckOut:        true,
	FieldGuestCount:      true,
	FieldGuestName:       true,
	FieldContact:         true,
	FieldRoomType:        true,
	FieldSpecialRequests: true,
}

// KnownField reports whether name is a recognized reservation field.
func KnownField(name string) bool {
	return knownFields[name]
}

// Reasons a field value failed validation.
const (
	InvalidPastDate   = "past_date"
	InvalidDateOrder  = "date_order"
	InvalidGuestCount = "needs_clarification"
)

// FieldStatus is the variant tag of a FieldResult.
type FieldStatus string

const (
	FieldAbsent  FieldStatus = "absent"
	FieldPresent FieldStatus = "present"
	FieldInvalid FieldStatus = "invalid"
)

// FieldResult is the extraction outcome for one reservation field: a
// validated value, explicitly absent, or invalid with a reason. Completeness
// checks range over these variants, never over raw strings.
type FieldResult struct {
	Status FieldStatus `json:"status"`
	Value  string      `json:"value,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Present wraps a validated value. Dates are canonical 2006-01-02, counts
// are decimal integers.
func Present(value string) FieldResult {
	return FieldResult{Status: FieldPresent, Value: value}
}

// Absent marks a field the conversation has not supplied.
func Absent() FieldResult {
	return FieldResult{Status: FieldAbsent}
}

// Invalid marks a supplied value that failed a domain rule. For completeness
// it counts the same as Absent; the reason feeds the clarification loop.
func Invalid(reason string) FieldResult {
	return FieldResult{Status: FieldInvalid, Reason: reason}
}

// IsPresent reports whether the field holds a validated value.
func (f FieldResult) IsPresent() bool {
	return f.Status == FieldPresent
}

// DateValue parses the canonical date form of a present field.
func (f FieldResult) DateValue() (time.Time, bool) {
	if !f.IsPresent() {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", f.Value)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// IntValue parses the integer form of a present field.
func (f FieldResult) IntValue() (int, bool) {
	if !f.IsPresent() {
		return 0, false
	}
	n, err := strconv.Atoi(f.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PartialReservation holds the per-field extraction results for one session.
// The zero value has every field absent.
type PartialReservation struct {
	CheckIn         FieldResult `json:"check_in"`
	CheckOut        FieldResult `json:"check_out"`
	GuestCount      FieldResult `json:"guest_count"`
	GuestName       FieldResult `json:"guest_name"`
	Contact         FieldResult `json:"contact"`
	RoomType        FieldResult `json:"room_type"`
	SpecialRequests FieldResult `json:"special_requests"`
}

// EmptyPartial returns a reservation with every field explicitly absent.
func EmptyPartial() PartialReservation {
	return PartialReservation{
		CheckIn:         Absent(),
		CheckOut:        Absent(),
		GuestCount:      Absent(),
		GuestName:       Absent(),
		Contact:         Absent(),
		RoomType:        Absent(),
		SpecialRequests: Absent(),
	}
}

// Field looks a result up by configuration name. Unknown names read as
// absent.
func (p PartialReservation) Field(name string) FieldResult {
	switch name {
	case FieldCheckIn:
		return p.CheckIn
	case FieldCheckOut:
		return p.CheckOut
	case FieldGuestCount:
		return p.GuestCount
	case FieldGuestName:
		return p.GuestName
	case FieldContact:
		return p.Contact
	case FieldRoomType:
		return p.RoomType
	case FieldSpecialRequests:
		return p.SpecialRequests
	}
	return Absent()
}

// Missing returns the required field names that are not Present, in the
// order given.
func (p PartialReservation) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if !p.Field(name).IsPresent() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every required field is Present.
func (p PartialReservation) Complete(required []string) bool {
	return len(p.Missing(required)) == 0
}
