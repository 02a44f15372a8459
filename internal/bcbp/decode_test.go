package bcbp

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	passMandatory1 = "M1JOHN/SMITH JORDAN   EABCDEF JFKSVOSU 1234A001Y001Z0007 000"
	passMandatory4 = "M4VERYLONGESTLASTNAMEDEABCDEF JFKSVOSU 1234 207          000" +
		"ABCDEF SVOLEDSU 5678 210          000" +
		"ABCDEF LEDSVOSU 9876 215          000" +
		"ABCDEF SVOJFKSU 1357 215          000"
	passConditional3 = "M3JOHN/SMITH          EABCDEF JFKSVOSK 1234 123M014C0050 35D>5180O 0276BSK              2A55559467513980 SK                         *30600000K09         " +
		"ABCDEF SVOFRASU 5678 135Y013A0012 3372A55559467513990 SU SU 12345678             09         " +
		"ABCDEF FRAJFKSU 9876 231Y022F0052 3372A55559467513990 SU SU 12345678             09         "
	passSurnameSpace = "M1IVANOVA VASILINA/   EABCDEF SVOLEDSU 0036 315YNS  0049 362>5324OO7314BSU                                        2A5551993799397 1                          N"
	passAlaska       = "M1MROZ/MARTIN         EXXXXXX SJCLAXAS 3317 207U001A0006 34D>218 VV8207BAS              2502771980993865 AS AS XXXXX55200000000Z29  00010"
	passAirCanada    = "M1Mroz/Martin         EXXXXXX YVRYOWAC 0344 211          072>20B0  8203IAC 250140000000000 0AC AC AC000000000     *20000AC 223                14080003068        0B          N"
	passIATA1        = "M1DESMARAIS/LUC       EABC123 YULFRAAC 0834 326J001A0025 100^100"
	passIATA2        = "M2DESMARAIS/LUC       EABC123 YULFRAAC 0834 226F001A0025 14D>6181WW6225BAC 00141234560032A0141234567890 1AC AC 1234567890123    20KYLX58Z" +
		"DEF456 FRAGVALH 3664 227C012C0002 12E2A0140987654321 1AC AC 1234567890123    2PCNWQ^100"
	passBruner = "M1BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 100"
)

func mustDecode(t *testing.T, s string) *Record {
	t.Helper()
	r, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	return r
}

func TestDecodeMandatory1(t *testing.T) {
	r := mustDecode(t, passMandatory1)

	if r.Name() != "JOHN/SMITH JORDAN" {
		t.Errorf("Name() = %q, want %q", r.Name(), "JOHN/SMITH JORDAN")
	}
	if r.LastName != "JOHN" || r.FirstName != "SMITH JORDAN" {
		t.Errorf("name = %q / %q", r.LastName, r.FirstName)
	}
	if r.ETicket != "E" {
		t.Errorf("ETicket = %q, want E", r.ETicket)
	}
	if len(r.Legs) != 1 {
		t.Fatalf("len(Legs) = %d, want 1", len(r.Legs))
	}

	leg := r.Legs[0]
	want := Leg{
		PNR:             "ABCDEF",
		From:            "JFK",
		To:              "SVO",
		Airline:         "SU",
		FlightNumber:    "1234A",
		FlightDay:       1,
		Compartment:     "Y",
		Seat:            "1Z",
		CheckInSequence: 7,
		PaxStatus:       "0",
	}
	if !reflect.DeepEqual(leg, want) {
		t.Errorf("leg = %+v, want %+v", leg, want)
	}
	if leg.PaxStatus.Kind() != PaxStatusNotCheckedIn {
		t.Errorf("PaxStatus.Kind() = %v, want PaxStatusNotCheckedIn", leg.PaxStatus.Kind())
	}
	if got := leg.FlightDate(2017); !got.Equal(time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("FlightDate(2017) = %v", got)
	}
	if leg.FlightDayAligned() != "001" {
		t.Errorf("FlightDayAligned() = %q, want 001", leg.FlightDayAligned())
	}
	if leg.SeatAligned() != "001Z" {
		t.Errorf("SeatAligned() = %q, want 001Z", leg.SeatAligned())
	}
	if leg.SequenceAligned() != "0007" {
		t.Errorf("SequenceAligned() = %q, want 0007", leg.SequenceAligned())
	}
}

func TestDecodeMandatory4(t *testing.T) {
	r := mustDecode(t, passMandatory4)

	if r.Name() != "VERYLONGESTLASTNAMED" {
		t.Errorf("Name() = %q", r.Name())
	}
	if r.LastName != "VERYLONGESTLASTNAMED" || r.FirstName != "" {
		t.Errorf("name = %q / %q", r.LastName, r.FirstName)
	}

	tests := []struct {
		from, to, flight string
		day              int
	}{
		{"JFK", "SVO", "1234", 207},
		{"SVO", "LED", "5678", 210},
		{"LED", "SVO", "9876", 215},
		{"SVO", "JFK", "1357", 215},
	}
	if len(r.Legs) != len(tests) {
		t.Fatalf("len(Legs) = %d, want %d", len(r.Legs), len(tests))
	}
	for i, tt := range tests {
		leg := r.Legs[i]
		if leg.PNR != "ABCDEF" || leg.From != tt.from || leg.To != tt.to || leg.Airline != "SU" {
			t.Errorf("leg %d = %+v", i, leg)
		}
		if leg.FlightNumber != tt.flight {
			t.Errorf("leg %d FlightNumber = %q, want %q", i, leg.FlightNumber, tt.flight)
		}
		if leg.FlightDay != tt.day {
			t.Errorf("leg %d FlightDay = %d, want %d", i, leg.FlightDay, tt.day)
		}
		if leg.Seat != "" || leg.CheckInSequence != 0 || leg.Compartment != "" {
			t.Errorf("leg %d has unexpected seat/sequence/compartment: %+v", i, leg)
		}
	}
}

func TestDecodeConditional3(t *testing.T) {
	r := mustDecode(t, passConditional3)

	if r.Name() != "JOHN/SMITH" {
		t.Errorf("Name() = %q", r.Name())
	}
	if r.Version != "5" {
		t.Errorf("Version = %q, want 5", r.Version)
	}
	if r.PaxType != PaxTypeAdult {
		t.Errorf("PaxType = %q, want adult", r.PaxType)
	}
	if r.BoardingPassIssueDate != 276 || r.DocumentType != "B" || r.BoardingPassAirline != "SK" {
		t.Errorf("unique block = %d %q %q", r.BoardingPassIssueDate, r.DocumentType, r.BoardingPassAirline)
	}
	if r.BagTags != nil {
		t.Errorf("BagTags = %q, want none", r.BagTags)
	}

	tests := []struct {
		from, to, airline, flight string
		day                       int
		doc, tail                 string
	}{
		{"JFK", "SVO", "SK", "1234", 123, "5946751398", "*30600000K09         "},
		{"SVO", "FRA", "SU", "5678", 135, "5946751399", "09         "},
		{"FRA", "JFK", "SU", "9876", 231, "5946751399", "09         "},
	}
	if len(r.Legs) != len(tests) {
		t.Fatalf("len(Legs) = %d, want %d", len(r.Legs), len(tests))
	}
	for i, tt := range tests {
		leg := r.Legs[i]
		if leg.From != tt.from || leg.To != tt.to || leg.Airline != tt.airline || leg.FlightNumber != tt.flight {
			t.Errorf("leg %d = %+v", i, leg)
		}
		if leg.FlightDay != tt.day {
			t.Errorf("leg %d FlightDay = %d, want %d", i, leg.FlightDay, tt.day)
		}
		if leg.AirlineNumericCode != "555" || leg.DocumentNumber != tt.doc {
			t.Errorf("leg %d document = %q %q", i, leg.AirlineNumericCode, leg.DocumentNumber)
		}
		if leg.AirlineIndividualUse != tt.tail {
			t.Errorf("leg %d AirlineIndividualUse = %q, want %q", i, leg.AirlineIndividualUse, tt.tail)
		}
	}
	if r.Legs[1].FrequentFlyerNumber != "12345678" || r.Legs[1].FrequentFlyerAirline != "SU" {
		t.Errorf("leg 1 frequent flyer = %q %q", r.Legs[1].FrequentFlyerAirline, r.Legs[1].FrequentFlyerNumber)
	}
}

func TestDecodeSurnameWithSpace(t *testing.T) {
	r := mustDecode(t, passSurnameSpace)

	if r.Name() != "IVANOVA VASILINA/" {
		t.Errorf("Name() = %q", r.Name())
	}
	if r.LastName != "IVANOVA VASILINA" || r.FirstName != "" {
		t.Errorf("name = %q / %q", r.LastName, r.FirstName)
	}

	leg := r.Legs[0]
	if leg.FlightNumber != "0036" || leg.FlightDay != 315 {
		t.Errorf("flight = %q day %d", leg.FlightNumber, leg.FlightDay)
	}
	if leg.Seat != "NS" {
		t.Errorf("Seat = %q, want NS", leg.Seat)
	}
	if leg.CheckInSequence != 49 {
		t.Errorf("CheckInSequence = %d, want 49", leg.CheckInSequence)
	}
	if leg.PaxStatus != "3" || leg.PaxStatus.Kind() != PaxStatusOther {
		t.Errorf("PaxStatus = %q", leg.PaxStatus)
	}
	if leg.FastTrack != "N" || leg.InternationalDocVerification != "1" {
		t.Errorf("FastTrack = %q, IDV = %q", leg.FastTrack, leg.InternationalDocVerification)
	}

	if r.Version != "5" {
		t.Errorf("Version = %q, want 5", r.Version)
	}
	if r.PaxType != PaxTypeInfant {
		t.Errorf("PaxType = %q, want %q", r.PaxType, PaxTypeInfant)
	}
	if r.CheckInSource != "O" || r.BoardingPassSource != "O" {
		t.Errorf("sources = %q %q", r.CheckInSource, r.BoardingPassSource)
	}
	if r.BoardingPassIssueDate != 7314 {
		t.Errorf("BoardingPassIssueDate = %d, want 7314", r.BoardingPassIssueDate)
	}
	if r.BoardingPassAirline != "SU" || r.DocumentType != "B" {
		t.Errorf("issuer = %q doc %q", r.BoardingPassAirline, r.DocumentType)
	}
}

func TestDecodeRealWorld(t *testing.T) {
	t.Run("alaska", func(t *testing.T) {
		r := mustDecode(t, passAlaska)
		if r.LastName != "MROZ" || r.FirstName != "MARTIN" {
			t.Errorf("name = %q / %q", r.LastName, r.FirstName)
		}
		if r.PaxType != PaxTypeNone || r.CheckInSource != "V" || r.BoardingPassSource != "V" {
			t.Errorf("unique = %q %q %q", r.PaxType, r.CheckInSource, r.BoardingPassSource)
		}
		if r.BoardingPassIssueDate != 8207 || r.DocumentType != "B" || r.BoardingPassAirline != "AS" {
			t.Errorf("issue = %d %q %q", r.BoardingPassIssueDate, r.DocumentType, r.BoardingPassAirline)
		}
		if r.BagTags != nil {
			t.Errorf("BagTags = %q, want none", r.BagTags)
		}

		leg := r.Legs[0]
		want := Leg{
			PNR:                  "XXXXXX",
			From:                 "SJC",
			To:                   "LAX",
			Airline:              "AS",
			FlightNumber:         "3317",
			FlightDay:            207,
			Compartment:          "U",
			Seat:                 "1A",
			CheckInSequence:      6,
			PaxStatus:            "3",
			AirlineNumericCode:   "027",
			DocumentNumber:       "7198099386",
			SelecteeIndicator:    "5",
			MarketingAirline:     "AS",
			FrequentFlyerAirline: "AS",
			FrequentFlyerNumber:  "XXXXX55200000000",
			AirlineIndividualUse: "Z29  00010",
		}
		if !reflect.DeepEqual(leg, want) {
			t.Errorf("leg = %+v\nwant %+v", leg, want)
		}
	})

	t.Run("air canada", func(t *testing.T) {
		r := mustDecode(t, passAirCanada)
		if r.LastName != "Mroz" || r.FirstName != "Martin" {
			t.Errorf("name = %q / %q, case must be preserved", r.LastName, r.FirstName)
		}
		if r.PaxType != PaxTypeAdult || r.CheckInSource != "" || r.BoardingPassSource != "" {
			t.Errorf("unique = %q %q %q", r.PaxType, r.CheckInSource, r.BoardingPassSource)
		}
		if r.BoardingPassIssueDate != 8203 || r.DocumentType != "I" || r.BoardingPassAirline != "AC" {
			t.Errorf("issue = %d %q %q", r.BoardingPassIssueDate, r.DocumentType, r.BoardingPassAirline)
		}

		leg := r.Legs[0]
		if leg.Compartment != "" || leg.Seat != "" || leg.CheckInSequence != 0 || leg.PaxStatus != "0" {
			t.Errorf("mandatory = %+v", leg)
		}
		if leg.AirlineNumericCode != "014" || leg.DocumentNumber != "0000000000" {
			t.Errorf("document = %q %q", leg.AirlineNumericCode, leg.DocumentNumber)
		}
		if leg.SelecteeIndicator != "" || leg.InternationalDocVerification != "0" {
			t.Errorf("selectee = %q idv = %q", leg.SelecteeIndicator, leg.InternationalDocVerification)
		}
		if leg.FrequentFlyerNumber != "AC000000000" {
			t.Errorf("FrequentFlyerNumber = %q", leg.FrequentFlyerNumber)
		}
		if leg.IDADIndicator != "" || leg.FreeBaggageAllowance != "" || leg.FastTrack != "" {
			t.Errorf("trailing repeated fields set: %+v", leg)
		}
		const tail = "*20000AC 223                14080003068        0B          N"
		if leg.AirlineIndividualUse != tail {
			t.Errorf("AirlineIndividualUse = %q, want %q", leg.AirlineIndividualUse, tail)
		}
	})

	t.Run("iata two legs", func(t *testing.T) {
		r := mustDecode(t, passIATA2)
		if r.Version != "6" || r.PaxType != PaxTypeMale {
			t.Errorf("version = %q pax = %q", r.Version, r.PaxType)
		}
		if !reflect.DeepEqual(r.BagTags, []string{"0014123456003"}) {
			t.Errorf("BagTags = %q", r.BagTags)
		}
		if r.SecurityDataKind != "1" || r.SecurityData != "" {
			t.Errorf("security = %q %q", r.SecurityDataKind, r.SecurityData)
		}
		if len(r.Legs) != 2 {
			t.Fatalf("len(Legs) = %d, want 2", len(r.Legs))
		}
		if l := r.Legs[0]; l.FreeBaggageAllowance != "20K" || l.FastTrack != "Y" || l.AirlineIndividualUse != "LX58Z" {
			t.Errorf("leg 0 = %+v", l)
		}
		if l := r.Legs[1]; l.Airline != "LH" || l.Seat != "12C" || l.FreeBaggageAllowance != "2PC" || l.AirlineIndividualUse != "WQ" {
			t.Errorf("leg 1 = %+v", l)
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   error
		wantField Field
		hasField  bool
		wantChar  byte
	}{
		{
			name:    "empty",
			input:   "",
			wantErr: ErrMandatoryDataSize,
		},
		{
			name:    "truncated name",
			input:   "M2DESMARAIS",
			wantErr: ErrMandatoryDataSize,
		},
		{
			name:      "format code X",
			input:     "X1BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 100",
			wantErr:   ErrInvalidFormatCode,
			wantField: FieldFormatCode,
			hasField:  true,
			wantChar:  'X',
		},
		{
			name:      "format code S",
			input:     "S" + passIATA1[1:],
			wantErr:   ErrInvalidFormatCode,
			wantField: FieldFormatCode,
			hasField:  true,
			wantChar:  'S',
		},
		{
			name:      "lowercase format code",
			input:     "m" + passIATA1[1:],
			wantErr:   ErrInvalidFormatCode,
			wantField: FieldFormatCode,
			hasField:  true,
			wantChar:  'm',
		},
		{
			name:      "zero legs",
			input:     "M0BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 100",
			wantErr:   ErrInvalidLegsCount,
			wantField: FieldLegsCount,
			hasField:  true,
		},
		{
			name:      "alpha legs",
			input:     "MABRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 100",
			wantErr:   ErrExpectedInteger,
			wantField: FieldLegsCount,
			hasField:  true,
		},
		{
			name:      "legs X with trailing data",
			input:     "MX" + passIATA1[2:] + "+",
			wantErr:   ErrExpectedInteger,
			wantField: FieldLegsCount,
			hasField:  true,
		},
		{
			name:     "non-ascii",
			input:    strings.Replace(passIATA1, "LUC", "LUç", 1),
			wantErr:  ErrInvalidCharacters,
			wantChar: 0xC3,
		},
		{
			name:     "non-ascii minimal",
			input:    "ç",
			wantErr:  ErrInvalidCharacters,
			wantChar: 0xC3,
		},
		{
			name:    "trailing data",
			input:   passIATA1 + "+",
			wantErr: ErrTrailingData,
		},
		{
			name:      "security prefix",
			input:     strings.Replace(passIATA1, "^", "+", 1),
			wantErr:   ErrInvalidPrefix,
			wantField: FieldSecurityDataBegin,
			hasField:  true,
			wantChar:  '+',
		},
		{
			name:      "version prefix",
			input:     strings.Replace(passIATA2, "14D>", "14D+", 1),
			wantErr:   ErrInvalidPrefix,
			wantField: FieldVersionBegin,
			hasField:  true,
			wantChar:  '+',
		},
		{
			name:      "security length not hex",
			input:     strings.Replace(passIATA1, "^100", "^1YY", 1),
			wantErr:   ErrExpectedInteger,
			wantField: FieldSecurityDataLen,
			hasField:  true,
		},
		{
			name:      "conditional size past end",
			input:     strings.Replace(passIATA2, "14D>", "1FF>", 1),
			wantErr:   ErrConditionalDataSize,
			wantField: FieldVariableBlockSize,
			hasField:  true,
		},
		{
			name:      "conditional size on single leg",
			input:     "M1BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 1FF",
			wantErr:   ErrSubsectionTooLong,
			wantField: FieldVariableBlockSize,
			hasField:  true,
		},
		{
			name:      "version prefix without version",
			input:     "M1BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 101<",
			wantErr:   ErrUnexpectedEndOfInput,
			wantField: FieldVersion,
			hasField:  true,
		},
		{
			name:      "security data past end",
			input:     strings.Replace(passIATA2, "^100", "^101", 1),
			wantErr:   ErrUnexpectedEndOfInput,
			wantField: FieldSecurityData,
			hasField:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.input)
			if err == nil {
				t.Fatalf("Decode() = %+v, want error %v", r, tt.wantErr)
			}
			if r != nil {
				t.Errorf("Decode() returned a partial record on error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			var de *Error
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error %T is not *Error", err)
			}
			if de.HasField != tt.hasField || (tt.hasField && de.Field != tt.wantField) {
				t.Errorf("Field = %v (%v), want %v (%v)", de.Field, de.HasField, tt.wantField, tt.hasField)
			}
			if tt.wantChar != 0 && de.Char != tt.wantChar {
				t.Errorf("Char = %q, want %q", de.Char, tt.wantChar)
			}
		})
	}
}

func TestConditionalSizeMatchesBothKinds(t *testing.T) {
	_, err := Decode(strings.Replace(passIATA2, "14D>", "1FF>", 1))
	if !errors.Is(err, ErrConditionalDataSize) || !errors.Is(err, ErrSubsectionTooLong) {
		t.Errorf("error = %v, want both ErrConditionalDataSize and ErrSubsectionTooLong", err)
	}
	if ErrorKind(err) != "conditional_data_size" {
		t.Errorf("ErrorKind() = %q", ErrorKind(err))
	}
	if ErrorOffset(err) != 58 {
		t.Errorf("ErrorOffset() = %d, want 58", ErrorOffset(err))
	}
}

func TestLegsCountMatchesDigit(t *testing.T) {
	for _, s := range []string{passMandatory1, passMandatory4, passConditional3, passIATA2} {
		r := mustDecode(t, s)
		if want := int(s[1] - '0'); len(r.Legs) != want {
			t.Errorf("len(Legs) = %d, want %d for %q", len(r.Legs), want, s[:2])
		}
	}
}

func TestExactConsumption(t *testing.T) {
	for _, s := range []string{passMandatory1, passMandatory4, passConditional3, passSurnameSpace, passAlaska, passAirCanada, passIATA1, passIATA2} {
		if _, err := Decode(s + "X"); !errors.Is(err, ErrTrailingData) && !errors.Is(err, ErrInvalidPrefix) {
			t.Errorf("Decode(%q + X) error = %v, want trailing data or prefix error", s[:10], err)
		}
	}
	// Once a security section is present, any extra byte is trailing data.
	if _, err := Decode(passIATA2 + "X"); !errors.Is(err, ErrTrailingData) {
		t.Errorf("error = %v, want ErrTrailingData", err)
	}
}

func TestDecoderTraceAndLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var traces []FieldTrace
	d := NewDecoder(
		WithLogger(zap.New(core)),
		WithTrace(func(ft FieldTrace) { traces = append(traces, ft) }),
	)

	if _, err := d.Decode(passIATA1); err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}

	if len(traces) == 0 {
		t.Fatal("no field traces recorded")
	}
	if traces[0].Field != FieldFormatCode || traces[0].Offset != 0 || traces[0].Value != "M" {
		t.Errorf("first trace = %+v", traces[0])
	}
	last := traces[len(traces)-1]
	if last.Field != FieldSecurityDataLen || last.Value != "00" {
		t.Errorf("last trace = %+v", last)
	}
	for i := 1; i < len(traces); i++ {
		if traces[i].Offset != traces[i-1].Offset+len(traces[i-1].Value) {
			t.Errorf("trace %d offset %d does not follow %+v", i, traces[i].Offset, traces[i-1])
		}
	}
	if got := logs.FilterMessage("scan field").Len(); got != len(traces) {
		t.Errorf("logged %d fields, traced %d", got, len(traces))
	}
}

func TestIssueDate(t *testing.T) {
	r := &Record{BoardingPassIssueDate: 7314}
	if r.IssueDayOfYear() != 314 {
		t.Errorf("IssueDayOfYear() = %d, want 314", r.IssueDayOfYear())
	}

	ref := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, err := r.IssueDate(ref)
	if err != nil {
		t.Fatalf("IssueDate() unexpected error: %v", err)
	}
	if want := time.Date(2017, time.November, 10, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("IssueDate() = %v, want %v", got, want)
	}

	// Same year digit but later in the year than ref: a decade back.
	ref = time.Date(2017, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, err = r.IssueDate(ref)
	if err != nil {
		t.Fatalf("IssueDate() unexpected error: %v", err)
	}
	if got.Year() != 2007 {
		t.Errorf("IssueDate().Year() = %d, want 2007", got.Year())
	}

	// Day 366 in a non-leap candidate year: 2026 has none, 2016 does.
	r = &Record{BoardingPassIssueDate: 6366}
	got, err = r.IssueDate(time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("IssueDate() unexpected error: %v", err)
	}
	if want := time.Date(2016, time.December, 31, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("IssueDate() = %v, want %v", got, want)
	}
}
