package bcbp

import (
	"fmt"
	"strconv"
	"strings"
)

// Encoder formats Records back into payloads.
type Encoder struct {
	conditional bool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithConditional makes the encoder emit the version, unique and repeated
// conditional blocks, the individual use tails and the security section.
// Without it only the mandatory fields are written.
func WithConditional() EncoderOption {
	return func(e *Encoder) {
		e.conditional = true
	}
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes the header and the mandatory fields of up to 9 legs, each
// followed by an empty conditional block.
func Encode(r *Record) string {
	var b strings.Builder
	writeHeader(&b, r)
	for i := 0; i < r.LegsCount(); i++ {
		writeMandatory(&b, &r.Legs[i])
		b.WriteString("00")
	}
	return b.String()
}

// Encode formats r. It fails with ErrNoLegs for a record without legs, which
// no decoder accepts, and in conditional mode when a block does not fit its
// two hex digit size.
func (e *Encoder) Encode(r *Record) (string, error) {
	if len(r.Legs) == 0 {
		return "", ErrNoLegs
	}
	if !e.conditional {
		return Encode(r), nil
	}

	var b strings.Builder
	writeHeader(&b, r)
	for i := 0; i < r.LegsCount(); i++ {
		leg := &r.Legs[i]
		writeMandatory(&b, leg)

		cond, err := conditionalBlock(r, leg, i == 0)
		if err != nil {
			return "", fmt.Errorf("leg %d: %w", i, err)
		}
		if err := writeSized(&b, FieldVariableBlockSize, cond); err != nil {
			return "", fmt.Errorf("leg %d: %w", i, err)
		}
	}

	if r.SecurityDataKind != "" || r.SecurityData != "" {
		b.WriteByte('^')
		pad(&b, r.SecurityDataKind, FieldSecurityDataKind.Len())
		if err := writeSized(&b, FieldSecurityDataLen, r.SecurityData); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// TruncateMandatory cuts a single-leg payload back to its mandatory fields
// followed by an empty conditional block.
func TruncateMandatory(s string) (string, error) {
	if len(s) < MinLength {
		return "", newError(ErrMandatoryDataSize, len(s))
	}
	return s[:MinLength-2] + "00", nil
}

// pad writes s left-justified in n columns, truncating if needed.
func pad(b *strings.Builder, s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	b.WriteString(s)
	for i := len(s); i < n; i++ {
		b.WriteByte(' ')
	}
}

func writeHeader(b *strings.Builder, r *Record) {
	b.WriteByte('M')
	b.WriteString(strconv.Itoa(r.LegsCount()))
	pad(b, r.Name(), FieldPaxName.Len())
	pad(b, r.ETicket, FieldETicketIndicator.Len())
}

func writeMandatory(b *strings.Builder, leg *Leg) {
	pad(b, leg.PNR, FieldOperatingAirlinePNR.Len())
	pad(b, leg.From, FieldFromAirport.Len())
	pad(b, leg.To, FieldToAirport.Len())
	pad(b, leg.Airline, FieldOperatingAirline.Len())
	pad(b, leg.FlightNumber, FieldFlightNumber.Len())
	pad(b, leg.FlightDayAligned(), FieldDateOfFlight.Len())
	pad(b, leg.Compartment, FieldCompartmentCode.Len())
	pad(b, leg.SeatAligned(), FieldSeatNumber.Len())
	pad(b, leg.SequenceAligned(), FieldCheckInSequence.Len())
	pad(b, string(leg.PaxStatus), FieldPaxStatus.Len())
}

// writeSized writes the two hex digit length of body, then body.
func writeSized(b *strings.Builder, f Field, body string) error {
	if len(body) > 0xFF {
		return fieldError(ErrBlockTooLong, f, b.Len())
	}
	fmt.Fprintf(b, "%02X", len(body))
	b.WriteString(body)
	return nil
}

type slot struct {
	f Field
	v string
}

// packFields writes slots up to the last one holding a value. Readers stop
// at the end of a block, so trailing unset fields are left out.
func packFields(slots []slot) string {
	last := -1
	for i, s := range slots {
		if s.v != "" {
			last = i
		}
	}
	var b strings.Builder
	for _, s := range slots[:last+1] {
		pad(&b, s.v, s.f.Len())
	}
	return b.String()
}

func uniqueBlock(r *Record) string {
	var issued string
	if r.BoardingPassIssueDate > 0 {
		issued = fmt.Sprintf("%04d", r.BoardingPassIssueDate)
	}
	slots := []slot{
		{FieldPaxDescription, string(r.PaxType)},
		{FieldCheckInSource, r.CheckInSource},
		{FieldBoardingPassIssueSource, r.BoardingPassSource},
		{FieldBoardingPassIssueDate, issued},
		{FieldDocumentType, r.DocumentType},
		{FieldBoardingPassIssueAirline, r.BoardingPassAirline},
	}
	tagFields := []Field{FieldBagTags, FieldBagTagsNonConsecutive1, FieldBagTagsNonConsecutive2}
	for i, tag := range r.BagTags {
		if i == len(tagFields) {
			break
		}
		slots = append(slots, slot{tagFields[i], tag})
	}
	return packFields(slots)
}

func repeatedBlock(leg *Leg) string {
	return packFields([]slot{
		{FieldAirlineNumericCode, leg.AirlineNumericCode},
		{FieldDocumentSerialNumber, leg.DocumentNumber},
		{FieldSelecteeIndicator, leg.SelecteeIndicator},
		{FieldInternationalDocVerification, leg.InternationalDocVerification},
		{FieldMarketingAirline, leg.MarketingAirline},
		{FieldFrequentFlyerAirline, leg.FrequentFlyerAirline},
		{FieldFrequentFlyerNumber, leg.FrequentFlyerNumber},
		{FieldIDADIndicator, leg.IDADIndicator},
		{FieldFreeBaggageAllowance, leg.FreeBaggageAllowance},
		{FieldFastTrack, leg.FastTrack},
	})
}

// conditionalBlock builds the body of a leg's conditional block. The first
// leg leads with the version and the unique block whenever anything follows.
func conditionalBlock(r *Record, leg *Leg, first bool) (string, error) {
	var b strings.Builder
	repeated := repeatedBlock(leg)
	tail := leg.AirlineIndividualUse
	more := repeated != "" || tail != ""

	if first {
		unique := uniqueBlock(r)
		if r.Version != "" || unique != "" || more {
			b.WriteByte('>')
			pad(&b, r.Version, FieldVersion.Len())
			if unique != "" || more {
				if err := writeSized(&b, FieldUniqueBlockSize, unique); err != nil {
					return "", err
				}
			}
		}
	}
	if more {
		if err := writeSized(&b, FieldRepeatedBlockSize, repeated); err != nil {
			return "", err
		}
	}
	b.WriteString(tail)
	return b.String(), nil
}
