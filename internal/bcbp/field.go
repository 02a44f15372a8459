package bcbp

import "fmt"

// Field identifies one element of a boarding pass payload.
type Field int

// Fields in Resolution 792 item number order.
const (
	FieldFormatCode Field = iota
	FieldAirlineIndividualUse
	FieldLegsCount
	FieldVariableBlockSize
	FieldOperatingAirlinePNR
	FieldVersionBegin
	FieldVersion
	FieldUniqueBlockSize
	FieldPaxName
	FieldCheckInSource
	FieldBoardingPassIssueSource
	FieldPaxDescription
	FieldDocumentType
	FieldRepeatedBlockSize
	FieldSelecteeIndicator
	FieldMarketingAirline
	FieldFrequentFlyerAirline
	FieldBoardingPassIssueAirline
	FieldBoardingPassIssueDate
	FieldBagTags
	FieldSecurityDataBegin
	FieldFromAirport
	FieldSecurityDataKind
	FieldSecurityDataLen
	FieldSecurityData
	FieldBagTagsNonConsecutive1
	FieldBagTagsNonConsecutive2
	FieldToAirport
	FieldOperatingAirline
	FieldFlightNumber
	FieldDateOfFlight
	FieldCompartmentCode
	FieldIDADIndicator
	FieldSeatNumber
	FieldCheckInSequence
	FieldInternationalDocVerification
	FieldPaxStatus
	FieldFreeBaggageAllowance
	FieldAirlineNumericCode
	FieldDocumentSerialNumber
	FieldFrequentFlyerNumber
	FieldETicketIndicator
	FieldFastTrack

	fieldCount
)

type fieldInfo struct {
	item int
	len  int
	name string
}

// Length 0 marks a variable-length field.
var fieldTable = [fieldCount]fieldInfo{
	FieldFormatCode:                   {1, 1, "Format Code"},
	FieldAirlineIndividualUse:         {4, 0, "Airline Individual Use"},
	FieldLegsCount:                    {5, 1, "Number of Legs Encoded"},
	FieldVariableBlockSize:            {6, 2, "Field Size of Variable Size Field"},
	FieldOperatingAirlinePNR:          {7, 7, "Operating Carrier PNR Code"},
	FieldVersionBegin:                 {8, 1, "Beginning of Version Number"},
	FieldVersion:                      {9, 1, "Version Number"},
	FieldUniqueBlockSize:              {10, 2, "Field Size of Structured Message (Unique)"},
	FieldPaxName:                      {11, 20, "Passenger Name"},
	FieldCheckInSource:                {12, 1, "Source of Check-In"},
	FieldBoardingPassIssueSource:      {14, 1, "Source of Boarding Pass Issuance"},
	FieldPaxDescription:               {15, 1, "Passenger Description"},
	FieldDocumentType:                 {16, 1, "Document Type"},
	FieldRepeatedBlockSize:            {17, 2, "Field Size of Structured Message (Repeated)"},
	FieldSelecteeIndicator:            {18, 1, "Selectee Indicator"},
	FieldMarketingAirline:             {19, 3, "Marketing Carrier Designator"},
	FieldFrequentFlyerAirline:         {20, 3, "Frequent Flyer Airline Designator"},
	FieldBoardingPassIssueAirline:     {21, 3, "Airline Designator of Boarding Pass Issuer"},
	FieldBoardingPassIssueDate:        {22, 4, "Date of Issue of Boarding Pass"},
	FieldBagTags:                      {23, 13, "Baggage Tag License Plate Number(s)"},
	FieldSecurityDataBegin:            {25, 1, "Beginning of Security Data"},
	FieldFromAirport:                  {26, 3, "From City Airport Code"},
	FieldSecurityDataKind:             {28, 1, "Type of Security Data"},
	FieldSecurityDataLen:              {29, 2, "Length of Security Data"},
	FieldSecurityData:                 {30, 0, "Security Data"},
	FieldBagTagsNonConsecutive1:       {31, 13, "1st Non-Consecutive Baggage Tag License Plate Number(s)"},
	FieldBagTagsNonConsecutive2:       {32, 13, "2nd Non-Consecutive Baggage Tag License Plate Number(s)"},
	FieldToAirport:                    {38, 3, "To City Airport Code"},
	FieldOperatingAirline:             {42, 3, "Operating Carrier Designator"},
	FieldFlightNumber:                 {43, 5, "Flight Number"},
	FieldDateOfFlight:                 {46, 3, "Date of Flight"},
	FieldCompartmentCode:              {71, 1, "Compartment Code"},
	FieldIDADIndicator:                {89, 1, "ID/AD Indicator"},
	FieldSeatNumber:                   {104, 4, "Seat Number"},
	FieldCheckInSequence:              {107, 5, "Check-In Sequence Number"},
	FieldInternationalDocVerification: {108, 1, "International Document Verification"},
	FieldPaxStatus:                    {117, 1, "Passenger Status"},
	FieldFreeBaggageAllowance:         {118, 3, "Free Baggage Allowance"},
	FieldAirlineNumericCode:           {142, 3, "Airline Numeric Code"},
	FieldDocumentSerialNumber:         {143, 10, "Document Form/Serial Number"},
	FieldFrequentFlyerNumber:          {236, 16, "Frequent Flyer Number"},
	FieldETicketIndicator:             {253, 1, "Electronic Ticket Indicator"},
	FieldFastTrack:                    {254, 1, "Fast Track"},
}

// Len returns the intrinsic length of the field in bytes, or 0 if the
// length is supplied by a preceding size field.
func (f Field) Len() int {
	if f < 0 || f >= fieldCount {
		return 0
	}
	return fieldTable[f].len
}

// Name returns the display name used by the Implementation Guide.
func (f Field) Name() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldTable[f].name
}

// Item returns the Resolution 792 item number.
func (f Field) Item() int {
	if f < 0 || f >= fieldCount {
		return 0
	}
	return fieldTable[f].item
}

func (f Field) String() string {
	return f.Name()
}

// MarshalText renders the field by name so errors and traces read well in JSON.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.Name()), nil
}

// Fields returns every catalogued field.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}
