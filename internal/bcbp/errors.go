package bcbp

import (
	"errors"
	"fmt"
)

// Error kinds. Every decode failure matches exactly one of these with errors.Is
// (ErrConditionalDataSize additionally matches ErrSubsectionTooLong).
var (
	ErrMandatoryDataSize    = errors.New("mandatory data too short")
	ErrInvalidCharacters    = errors.New("non-ascii characters in input")
	ErrInvalidFormatCode    = errors.New("invalid format code")
	ErrInvalidLegsCount     = errors.New("legs count out of range")
	ErrInvalidPrefix        = errors.New("invalid prefix")
	ErrSubsectionTooLong    = errors.New("subsection exceeds remaining input")
	ErrConditionalDataSize  = fmt.Errorf("%w: conditional data size", ErrSubsectionTooLong)
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
	ErrExpectedInteger      = errors.New("expected integer")
	ErrTrailingData         = errors.New("trailing data")
	ErrBlockTooLong         = errors.New("block exceeds 255 bytes")
	ErrNoLegs               = errors.New("record has no legs")
)

// Error carries the failing field, character and absolute input offset.
// Field is meaningful only when HasField is true.
type Error struct {
	Kind     error
	Field    Field
	HasField bool
	Char     byte
	Offset   int
}

func (e *Error) Error() string {
	switch {
	case e.HasField && e.Char != 0:
		return fmt.Sprintf("%v: %s %q at offset %d", e.Kind, e.Field, e.Char, e.Offset)
	case e.HasField:
		return fmt.Sprintf("%v: %s at offset %d", e.Kind, e.Field, e.Offset)
	case e.Char != 0:
		return fmt.Sprintf("%v: %q at offset %d", e.Kind, e.Char, e.Offset)
	default:
		return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, offset int) *Error {
	return &Error{Kind: kind, Offset: offset}
}

func fieldError(kind error, f Field, offset int) *Error {
	return &Error{Kind: kind, Field: f, HasField: true, Offset: offset}
}

// ErrorField extracts the field of a decode error, if it names one.
func ErrorField(err error) (Field, bool) {
	var e *Error
	if errors.As(err, &e) && e.HasField {
		return e.Field, true
	}
	return 0, false
}

// ErrorOffset extracts the input offset of a decode error, or -1.
func ErrorOffset(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Offset
	}
	return -1
}

// ErrorKind returns a stable snake_case identifier for the error kind, used
// for metrics labels and storage.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMandatoryDataSize):
		return "mandatory_data_size"
	case errors.Is(err, ErrInvalidCharacters):
		return "invalid_characters"
	case errors.Is(err, ErrInvalidFormatCode):
		return "invalid_format_code"
	case errors.Is(err, ErrInvalidLegsCount):
		return "invalid_legs_count"
	case errors.Is(err, ErrInvalidPrefix):
		return "invalid_prefix"
	case errors.Is(err, ErrConditionalDataSize):
		return "conditional_data_size"
	case errors.Is(err, ErrSubsectionTooLong):
		return "subsection_too_long"
	case errors.Is(err, ErrUnexpectedEndOfInput):
		return "unexpected_end_of_input"
	case errors.Is(err, ErrExpectedInteger):
		return "expected_integer"
	case errors.Is(err, ErrTrailingData):
		return "trailing_data"
	case errors.Is(err, ErrBlockTooLong):
		return "block_too_long"
	case errors.Is(err, ErrNoLegs):
		return "no_legs"
	default:
		return "unknown"
	}
}
