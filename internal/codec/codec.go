// Package codec encodes parse results for output: JSON for people and
// deterministic CBOR for compact machine consumers.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts "json" (or "") and "cbor".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): the same record
// always produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// bcbp.Field marshals as its name.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes v to deterministic CBOR. Struct keys follow the json tags.
func MarshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data into v.
func UnmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation for data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// Marshal encodes v in format f. pretty only affects JSON.
func Marshal(f Format, v any, pretty bool) ([]byte, error) {
	switch f {
	case FormatCBOR:
		return MarshalCBOR(v)
	case FormatJSON, "":
		if pretty {
			return json.MarshalIndent(v, "", "  ")
		}
		return json.Marshal(v)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}

// Writer streams values to w: newline-delimited JSON, or a CBOR sequence.
type Writer struct {
	format Format
	pretty bool
	w      io.Writer
	cbor   *cbor.Encoder
}

// NewWriter returns a Writer emitting format f to w.
func NewWriter(w io.Writer, f Format, pretty bool) *Writer {
	out := &Writer{format: f, pretty: pretty, w: w}
	if f == FormatCBOR {
		out.cbor = encMode.NewEncoder(w)
	}
	return out
}

// Write encodes one value.
func (w *Writer) Write(v any) error {
	if w.cbor != nil {
		return w.cbor.Encode(v)
	}
	b, err := Marshal(FormatJSON, v, w.pretty)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.w.Write(b)
	return err
}
