// Package bcbp decodes and encodes IATA Resolution 792 Bar Coded Boarding
// Pass payloads (format code M).
//
// A payload is a fixed-width header, one mandatory block per leg, and for each
// leg an optional size-prefixed conditional block. The conditional block of
// the first leg also carries the version and the data unique to the pass.
// An optional security section closes the payload.
package bcbp

import (
	"fmt"
	"strings"
	"time"

	"bcbp_parser/internal/datetime"
)

// MaxLegs is the largest leg count a single digit can encode.
const MaxLegs = 9

// MinLength is the size of the header plus one mandatory leg with an empty
// conditional block.
const MinLength = 60

// PaxStatus is the raw passenger status code of a leg. Empty means unset.
type PaxStatus string

// PaxStatusKind classifies a PaxStatus.
type PaxStatusKind int

const (
	PaxStatusNone PaxStatusKind = iota
	PaxStatusNotCheckedIn
	PaxStatusCheckedIn
	PaxStatusOther
)

// Kind classifies the status code.
func (s PaxStatus) Kind() PaxStatusKind {
	switch s {
	case "":
		return PaxStatusNone
	case "0":
		return PaxStatusNotCheckedIn
	case "1":
		return PaxStatusCheckedIn
	}
	return PaxStatusOther
}

// PaxType is the passenger description code. Empty means unset.
type PaxType string

const (
	PaxTypeNone               PaxType = ""
	PaxTypeAdult              PaxType = "0"
	PaxTypeMale               PaxType = "1"
	PaxTypeFemale             PaxType = "2"
	PaxTypeChild              PaxType = "3"
	PaxTypeInfant             PaxType = "4"
	PaxTypeCabinBaggage       PaxType = "5"
	PaxTypeAdultWithInfant    PaxType = "6"
	PaxTypeUnaccompaniedMinor PaxType = "7"
)

// Description returns a human readable label.
func (p PaxType) Description() string {
	switch p {
	case PaxTypeNone:
		return ""
	case PaxTypeAdult:
		return "adult"
	case PaxTypeMale:
		return "male"
	case PaxTypeFemale:
		return "female"
	case PaxTypeChild:
		return "child"
	case PaxTypeInfant:
		return "infant"
	case PaxTypeCabinBaggage:
		return "cabin baggage"
	case PaxTypeAdultWithInfant:
		return "adult travelling with infant"
	case PaxTypeUnaccompaniedMinor:
		return "unaccompanied minor"
	}
	return "other"
}

// Leg is one flight segment.
//
// Text fields are stored trimmed. Single character fields are one-byte
// strings and empty when the payload holds a space. Numeric fields use 0
// for unset.
type Leg struct {
	PNR                   string    `json:"pnr"`
	From                  string    `json:"from"`
	To                    string    `json:"to"`
	Airline               string    `json:"airline"`
	FlightNumber          string    `json:"flight_number"`
	FlightDay             int       `json:"flight_day,omitempty"`
	Compartment           string    `json:"compartment,omitempty"`
	Seat                  string    `json:"seat,omitempty"`
	CheckInSequence       int       `json:"check_in_sequence,omitempty"`
	CheckInSequenceSuffix string    `json:"check_in_sequence_suffix,omitempty"`
	PaxStatus             PaxStatus `json:"pax_status,omitempty"`

	// Repeated conditional block.
	AirlineNumericCode           string `json:"airline_numeric_code,omitempty"`
	DocumentNumber               string `json:"document_number,omitempty"`
	SelecteeIndicator            string `json:"selectee_indicator,omitempty"`
	InternationalDocVerification string `json:"international_doc_verification,omitempty"`
	MarketingAirline             string `json:"marketing_airline,omitempty"`
	FrequentFlyerAirline         string `json:"frequent_flyer_airline,omitempty"`
	FrequentFlyerNumber          string `json:"frequent_flyer_number,omitempty"`
	IDADIndicator                string `json:"id_ad_indicator,omitempty"`
	FreeBaggageAllowance         string `json:"free_baggage_allowance,omitempty"`
	FastTrack                    string `json:"fast_track,omitempty"`

	// AirlineIndividualUse is kept verbatim.
	AirlineIndividualUse string `json:"airline_individual_use,omitempty"`
}

// FlightDate returns the flight date in year. Unset or out of range days
// resolve to January 1st.
func (l *Leg) FlightDate(year int) time.Time {
	day := l.FlightDay
	if day < 1 || day > 366 {
		day = 1
	}
	t, err := datetime.DayOfYear(day).Date(year)
	if err != nil {
		return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// FlightDateNear resolves the flight day to the year nearest ref.
func (l *Leg) FlightDateNear(ref time.Time, days int) (time.Time, error) {
	d, err := datetime.NewDayOfYear(l.FlightDay)
	if err != nil {
		return time.Time{}, err
	}
	return d.DateNear(ref, days)
}

// FlightDayAligned renders the flight day zero-padded to 3 digits, or "" when unset.
func (l *Leg) FlightDayAligned() string {
	if l.FlightDay <= 0 {
		return ""
	}
	return fmt.Sprintf("%03d", l.FlightDay)
}

// SeatAligned renders the seat as it appears on the wire. Seats starting with
// a digit are zero-padded to 4 bytes; others (INF, GATE) are left as is.
func (l *Leg) SeatAligned() string {
	if l.Seat == "" {
		return ""
	}
	if c := l.Seat[0]; c >= '0' && c <= '9' && len(l.Seat) < 4 {
		return strings.Repeat("0", 4-len(l.Seat)) + l.Seat
	}
	return l.Seat
}

// SequenceAligned renders the check-in sequence as 4 zero-padded digits
// followed by the optional suffix, or "" when unset.
func (l *Leg) SequenceAligned() string {
	if l.CheckInSequence <= 0 {
		return l.CheckInSequenceSuffix
	}
	return fmt.Sprintf("%04d%s", l.CheckInSequence, l.CheckInSequenceSuffix)
}

// Record is a decoded boarding pass.
type Record struct {
	Version   string  `json:"version,omitempty"`
	PaxType   PaxType `json:"pax_type,omitempty"`
	LastName  string  `json:"last_name"`
	FirstName string  `json:"first_name,omitempty"`
	ETicket   string  `json:"eticket,omitempty"`
	Legs      []Leg   `json:"legs"`

	// Unique conditional block.
	CheckInSource         string   `json:"check_in_source,omitempty"`
	BoardingPassSource    string   `json:"boarding_pass_source,omitempty"`
	BoardingPassIssueDate int      `json:"boarding_pass_issue_date,omitempty"`
	DocumentType          string   `json:"document_type,omitempty"`
	BoardingPassAirline   string   `json:"boarding_pass_airline,omitempty"`
	BagTags               []string `json:"bag_tags,omitempty"`

	SecurityDataKind string `json:"security_data_kind,omitempty"`
	SecurityData     string `json:"security_data,omitempty"`
}

// Name returns the passenger name field as LAST/FIRST, truncated to 20 bytes.
func (r *Record) Name() string {
	name := r.LastName + "/" + r.FirstName
	if len(name) > FieldPaxName.Len() {
		name = name[:FieldPaxName.Len()]
	}
	return name
}

// LegsCount returns the number of legs an encoder will emit.
func (r *Record) LegsCount() int {
	return min(len(r.Legs), MaxLegs)
}

// IssueDayOfYear returns the ordinal day of the boarding pass issue date,
// dropping the leading year digit.
func (r *Record) IssueDayOfYear() int {
	return r.BoardingPassIssueDate % 1000
}

// IssueDate resolves the issue date against ref. The leading digit is the last
// digit of the year; the most recent matching year not after ref is chosen.
// Day 366 falls back a decade when the candidate year is not a leap year.
func (r *Record) IssueDate(ref time.Time) (time.Time, error) {
	d, err := datetime.NewDayOfYear(r.IssueDayOfYear())
	if err != nil {
		return time.Time{}, err
	}
	digit := r.BoardingPassIssueDate / 1000
	year := ref.Year() - ((ref.Year()%10-digit)+10)%10
	t, err := d.Date(year)
	if err != nil || t.After(ref) {
		t, err = d.Date(year - 10)
	}
	return t, err
}

// splitName splits the raw 20-byte name field on its first '/'.
func splitName(raw string) (last, first string) {
	last, first, found := strings.Cut(raw, "/")
	if !found {
		return strings.TrimRight(raw, " "), ""
	}
	return strings.TrimRight(last, " "), strings.TrimRight(first, " ")
}
