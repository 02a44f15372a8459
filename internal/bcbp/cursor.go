package bcbp

import "strconv"

// FieldTrace records a single field read: where it started and what it held.
type FieldTrace struct {
	Field  Field  `json:"field"`
	Offset int    `json:"offset"`
	Value  string `json:"value"`
}

// Cursor is a forward-only reader over the unconsumed suffix of a payload.
// Sub-cursors carved with TakeSubsection keep absolute offsets and share the
// parent's trace hook.
//
// Methods panic when a caller breaks the field catalog contract (a zero
// length, a length that disagrees with a fixed-length field). Those are
// programming errors, not data errors.
type Cursor struct {
	input  string
	offset int
	onRead func(FieldTrace)
}

// NewCursor creates a cursor over input.
func NewCursor(input string) *Cursor {
	return &Cursor{input: input}
}

func (c *Cursor) withHook(fn func(FieldTrace)) *Cursor {
	c.onRead = fn
	return c
}

// EOF reports whether all input has been consumed.
func (c *Cursor) EOF() bool {
	return len(c.input) == 0
}

// Len returns the number of unconsumed bytes.
func (c *Cursor) Len() int {
	return len(c.input)
}

// Offset returns the absolute position of the next byte to be read.
func (c *Cursor) Offset() int {
	return c.offset
}

// TakeSubsection consumes exactly n bytes and returns a cursor bounded to them.
// The bytes are consumed as a unit whether or not anything inside is valid.
func (c *Cursor) TakeSubsection(n int) (*Cursor, error) {
	if n <= 0 {
		panic("bcbp: zero-length subsection")
	}
	if len(c.input) < n {
		return nil, newError(ErrSubsectionTooLong, c.offset)
	}
	sub := &Cursor{input: c.input[:n], offset: c.offset, onRead: c.onRead}
	c.input = c.input[n:]
	c.offset += n
	return sub, nil
}

// TakeField consumes exactly n bytes as field f.
func (c *Cursor) TakeField(f Field, n int) (string, error) {
	if n <= 0 {
		panic("bcbp: zero-length read of " + f.Name())
	}
	if l := f.Len(); l != 0 && l != n {
		panic("bcbp: length does not match intrinsic length of " + f.Name())
	}
	if len(c.input) < n {
		return "", fieldError(ErrUnexpectedEndOfInput, f, c.offset)
	}
	value := c.input[:n]
	if c.onRead != nil {
		c.onRead(FieldTrace{Field: f, Offset: c.offset, Value: value})
	}
	c.input = c.input[n:]
	c.offset += n
	return value, nil
}

// TakeFieldFixed consumes a fixed-length field using its intrinsic length.
func (c *Cursor) TakeFieldFixed(f Field) (string, error) {
	if f.Len() == 0 {
		panic("bcbp: fixed read of variable-length " + f.Name())
	}
	return c.TakeField(f, f.Len())
}

// TakeFieldOpt is TakeFieldFixed that reports ok=false, without error, when
// the cursor is already exhausted.
func (c *Cursor) TakeFieldOpt(f Field) (string, bool, error) {
	if f.Len() == 0 {
		panic("bcbp: fixed read of variable-length " + f.Name())
	}
	if c.EOF() {
		return "", false, nil
	}
	v, err := c.TakeFieldFixed(f)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// TakeChar consumes a single-character field.
func (c *Cursor) TakeChar(f Field) (byte, error) {
	if f.Len() != 1 {
		panic("bcbp: char read of multi-byte " + f.Name())
	}
	v, err := c.TakeFieldFixed(f)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// TakeCharOpt is TakeChar with the same end-of-input behaviour as TakeFieldOpt.
func (c *Cursor) TakeCharOpt(f Field) (byte, bool, error) {
	if f.Len() != 1 {
		panic("bcbp: char read of multi-byte " + f.Name())
	}
	if c.EOF() {
		return 0, false, nil
	}
	v, err := c.TakeChar(f)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// TakeInt consumes a fixed-length field and parses it strictly in base.
// The input is consumed even when parsing fails.
func (c *Cursor) TakeInt(f Field, base int) (int, error) {
	start := c.offset
	v, err := c.TakeFieldFixed(f)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseUint(v, base, 32)
	if perr != nil {
		return 0, fieldError(ErrExpectedInteger, f, start)
	}
	return int(n), nil
}

// TakeRest consumes everything left as variable-length field f. It returns
// "" on an exhausted cursor.
func (c *Cursor) TakeRest(f Field) string {
	if c.EOF() {
		return ""
	}
	v, _ := c.TakeField(f, len(c.input))
	return v
}
