package bcbp

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Decoder turns payloads into Records. A Decoder is safe for concurrent use.
type Decoder struct {
	log   *zap.Logger
	trace func(FieldTrace)
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger logs every field and subsection read at debug level.
func WithLogger(log *zap.Logger) DecoderOption {
	return func(d *Decoder) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTrace calls fn for every field read, in payload order.
func WithTrace(fn func(FieldTrace)) DecoderOption {
	return func(d *Decoder) {
		d.trace = fn
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode parses s with a default Decoder.
func Decode(s string) (*Record, error) {
	return defaultDecoder.Decode(s)
}

func (d *Decoder) hook() func(FieldTrace) {
	debug := d.log.Core().Enabled(zapcore.DebugLevel)
	if d.trace == nil && !debug {
		return nil
	}
	return func(ft FieldTrace) {
		if d.trace != nil {
			d.trace(ft)
		}
		if debug {
			d.log.Debug("scan field",
				zap.Stringer("field", ft.Field),
				zap.Int("offset", ft.Offset),
				zap.String("value", ft.Value))
		}
	}
}

// fieldReader wraps a Cursor and keeps the first error, so a run of reads can
// be checked once.
type fieldReader struct {
	c   *Cursor
	err error
}

// text reads a fixed field and trims surrounding spaces.
func (fr *fieldReader) text(f Field) string {
	if fr.err != nil {
		return ""
	}
	v, err := fr.c.TakeFieldFixed(f)
	fr.err = err
	return strings.TrimSpace(v)
}

// opt reads a fixed field if any input is left and trims surrounding spaces.
func (fr *fieldReader) opt(f Field) string {
	if fr.err != nil {
		return ""
	}
	v, _, err := fr.c.TakeFieldOpt(f)
	fr.err = err
	return strings.TrimSpace(v)
}

// lenientInt parses a mandatory numeric field. Spaces and leading zeros are
// ignored; anything unparseable reads as 0.
func lenientInt(s string) int {
	s = strings.TrimLeft(strings.TrimSpace(s), "0")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Decode parses a complete payload. Decoding is all or nothing: on error the
// returned Record is nil.
func (d *Decoder) Decode(s string) (*Record, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return nil, &Error{Kind: ErrInvalidCharacters, Char: s[i], Offset: i}
		}
	}
	if len(s) < MinLength {
		return nil, newError(ErrMandatoryDataSize, len(s))
	}

	c := NewCursor(s).withHook(d.hook())

	code, err := c.TakeChar(FieldFormatCode)
	if err != nil {
		return nil, err
	}
	if code != 'M' {
		return nil, &Error{Kind: ErrInvalidFormatCode, Field: FieldFormatCode, HasField: true, Char: code}
	}

	legs, err := c.TakeInt(FieldLegsCount, 10)
	if err != nil {
		return nil, err
	}
	if legs < 1 || legs > MaxLegs {
		return nil, fieldError(ErrInvalidLegsCount, FieldLegsCount, 1)
	}

	name, err := c.TakeFieldFixed(FieldPaxName)
	if err != nil {
		return nil, err
	}
	r := &Record{Legs: make([]Leg, 0, legs)}
	r.LastName, r.FirstName = splitName(name)

	fr := &fieldReader{c: c}
	r.ETicket = fr.text(FieldETicketIndicator)
	if fr.err != nil {
		return nil, fr.err
	}

	for i := 0; i < legs; i++ {
		leg, err := d.decodeLeg(c, r, i)
		if err != nil {
			return nil, err
		}
		r.Legs = append(r.Legs, *leg)
	}

	if !c.EOF() {
		if err := decodeSecurity(c, r); err != nil {
			return nil, err
		}
	}

	if !c.EOF() {
		return nil, newError(ErrTrailingData, c.Offset())
	}
	return r, nil
}

func (d *Decoder) decodeLeg(c *Cursor, r *Record, index int) (*Leg, error) {
	fr := &fieldReader{c: c}
	leg := &Leg{
		PNR:          fr.text(FieldOperatingAirlinePNR),
		From:         fr.text(FieldFromAirport),
		To:           fr.text(FieldToAirport),
		Airline:      fr.text(FieldOperatingAirline),
		FlightNumber: fr.text(FieldFlightNumber),
		FlightDay:    lenientInt(fr.text(FieldDateOfFlight)),
		Compartment:  fr.text(FieldCompartmentCode),
		Seat:         strings.TrimLeft(fr.text(FieldSeatNumber), "0"),
	}
	seq := fr.text(FieldCheckInSequence)
	if n := len(seq); n > 0 && !isDigit(seq[n-1]) {
		leg.CheckInSequenceSuffix = seq[n-1:]
		seq = seq[:n-1]
	}
	leg.CheckInSequence = lenientInt(seq)
	leg.PaxStatus = PaxStatus(fr.text(FieldPaxStatus))
	if fr.err != nil {
		return nil, fr.err
	}

	sizeAt := c.Offset()
	size, err := c.TakeInt(FieldVariableBlockSize, 16)
	if err != nil {
		return nil, err
	}
	if size > c.Len() {
		return nil, fieldError(ErrConditionalDataSize, FieldVariableBlockSize, sizeAt)
	}
	if size == 0 {
		return leg, nil
	}
	d.log.Debug("conditional block", zap.Int("leg", index), zap.Int("size", size), zap.Int("offset", c.Offset()))

	item, err := c.TakeSubsection(size)
	if err != nil {
		return nil, err
	}

	if index == 0 {
		if err := d.decodeVersion(item, r); err != nil {
			return nil, err
		}
	}

	if !item.EOF() {
		n, err := item.TakeInt(FieldRepeatedBlockSize, 16)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			block, err := item.TakeSubsection(n)
			if err != nil {
				return nil, err
			}
			if err := decodeRepeated(block, leg); err != nil {
				return nil, err
			}
		}
	}

	leg.AirlineIndividualUse = item.TakeRest(FieldAirlineIndividualUse)
	return leg, nil
}

// decodeVersion reads the version prefix and the unique block that only the
// first leg carries.
func (d *Decoder) decodeVersion(item *Cursor, r *Record) error {
	at := item.Offset()
	prefix, err := item.TakeChar(FieldVersionBegin)
	if err != nil {
		return err
	}
	if prefix != '<' && prefix != '>' {
		return &Error{Kind: ErrInvalidPrefix, Field: FieldVersionBegin, HasField: true, Char: prefix, Offset: at}
	}

	version, err := item.TakeChar(FieldVersion)
	if err != nil {
		return err
	}
	if version != ' ' {
		r.Version = string(version)
	}

	if item.EOF() {
		return nil
	}
	n, err := item.TakeInt(FieldUniqueBlockSize, 16)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	d.log.Debug("unique block", zap.Int("size", n), zap.Int("offset", item.Offset()))
	block, err := item.TakeSubsection(n)
	if err != nil {
		return err
	}
	return decodeUnique(block, r)
}

func decodeUnique(block *Cursor, r *Record) error {
	fr := &fieldReader{c: block}
	r.PaxType = PaxType(fr.opt(FieldPaxDescription))
	r.CheckInSource = fr.opt(FieldCheckInSource)
	r.BoardingPassSource = fr.opt(FieldBoardingPassIssueSource)
	r.BoardingPassIssueDate = lenientInt(fr.opt(FieldBoardingPassIssueDate))
	r.DocumentType = fr.opt(FieldDocumentType)
	r.BoardingPassAirline = fr.opt(FieldBoardingPassIssueAirline)

	tags := []string{
		fr.opt(FieldBagTags),
		fr.opt(FieldBagTagsNonConsecutive1),
		fr.opt(FieldBagTagsNonConsecutive2),
	}
	for len(tags) > 0 && tags[len(tags)-1] == "" {
		tags = tags[:len(tags)-1]
	}
	if len(tags) > 0 {
		r.BagTags = tags
	}
	return fr.err
}

func decodeRepeated(block *Cursor, leg *Leg) error {
	fr := &fieldReader{c: block}
	leg.AirlineNumericCode = fr.opt(FieldAirlineNumericCode)
	leg.DocumentNumber = fr.opt(FieldDocumentSerialNumber)
	leg.SelecteeIndicator = fr.opt(FieldSelecteeIndicator)
	leg.InternationalDocVerification = fr.opt(FieldInternationalDocVerification)
	leg.MarketingAirline = fr.opt(FieldMarketingAirline)
	leg.FrequentFlyerAirline = fr.opt(FieldFrequentFlyerAirline)
	leg.FrequentFlyerNumber = fr.opt(FieldFrequentFlyerNumber)
	leg.IDADIndicator = fr.opt(FieldIDADIndicator)
	leg.FreeBaggageAllowance = fr.opt(FieldFreeBaggageAllowance)
	leg.FastTrack = fr.opt(FieldFastTrack)
	return fr.err
}

func decodeSecurity(c *Cursor, r *Record) error {
	at := c.Offset()
	prefix, err := c.TakeChar(FieldSecurityDataBegin)
	if err != nil {
		return err
	}
	if prefix != '^' {
		return &Error{Kind: ErrInvalidPrefix, Field: FieldSecurityDataBegin, HasField: true, Char: prefix, Offset: at}
	}

	fr := &fieldReader{c: c}
	r.SecurityDataKind = fr.opt(FieldSecurityDataKind)
	if fr.err != nil {
		return fr.err
	}
	if c.EOF() {
		return nil
	}

	n, err := c.TakeInt(FieldSecurityDataLen, 16)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	r.SecurityData, err = c.TakeField(FieldSecurityData, n)
	return err
}
