// Package boardingpass parses IATA BCBP boarding pass payloads.
package boardingpass

import (
	"bcbp_parser/internal/bcbp"
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/scan"
)

// Result represents a decoded boarding pass scan. A payload that looks like a
// boarding pass but fails to decode still yields a Result with Error set.
type Result struct {
	ID          int64         `json:"scan_id,omitempty"`
	Source      string        `json:"source,omitempty"`
	Timestamp   string        `json:"timestamp,omitempty"`
	Station     *scan.Station `json:"station,omitempty"`
	Pass        *bcbp.Record  `json:"pass,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	ErrorField  string        `json:"error_field,omitempty"`
	ErrorOffset int           `json:"error_offset,omitempty"`
}

func (r *Result) Type() string  { return "boarding_pass" }
func (r *Result) ScanID() int64 { return r.ID }

// OK reports whether the payload decoded.
func (r *Result) OK() bool { return r.Error == "" }

// Parser decodes BCBP payloads.
type Parser struct {
	dec *bcbp.Decoder
}

// New returns a Parser using dec, or the package default decoder when dec is nil.
func New(dec *bcbp.Decoder) *Parser {
	if dec == nil {
		dec = bcbp.NewDecoder()
	}
	return &Parser{dec: dec}
}

func init() {
	registry.Register(New(nil))
}

func (p *Parser) Name() string          { return "boarding_pass" }
func (p *Parser) FormatCodes() []string { return []string{"M"} }
func (p *Parser) Priority() int         { return 10 }

// QuickCheck accepts any payload with the M format code. Bad legs counts are
// left to the decoder so they come back as decode errors.
func (p *Parser) QuickCheck(text string) bool {
	return len(text) > 0 && text[0] == 'M'
}

func (p *Parser) Parse(s *scan.Scan) registry.Result {
	if s.Text == "" || !p.QuickCheck(s.Text) {
		return nil
	}
	return p.decode(s, p.decoder())
}

func (p *Parser) decoder(opts ...bcbp.DecoderOption) *bcbp.Decoder {
	if len(opts) > 0 || p.dec == nil {
		return bcbp.NewDecoder(opts...)
	}
	return p.dec
}

func (p *Parser) decode(s *scan.Scan, dec *bcbp.Decoder) *Result {
	result := &Result{
		ID:        int64(s.ID),
		Source:    s.Source,
		Timestamp: s.Timestamp,
		Station:   s.Station,
	}

	rec, err := dec.Decode(s.Text)
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = bcbp.ErrorKind(err)
		if f, ok := bcbp.ErrorField(err); ok {
			result.ErrorField = f.Name()
		}
		if off := bcbp.ErrorOffset(err); off >= 0 {
			result.ErrorOffset = off
		}
		return result
	}
	result.Pass = rec
	return result
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(s *scan.Scan) *registry.TraceResult {
	trace := &registry.TraceResult{
		ParserName: p.Name(),
	}

	quickCheckPassed := p.QuickCheck(s.Text)
	trace.QuickCheck = &registry.QuickCheck{
		Passed: quickCheckPassed,
	}

	if !quickCheckPassed {
		trace.QuickCheck.Reason = "No M format code"
		return trace
	}

	dec := p.decoder(bcbp.WithTrace(func(ft bcbp.FieldTrace) {
		trace.Fields = append(trace.Fields, ft)
	}))
	result := p.decode(s, dec)

	trace.Matched = result.OK()
	trace.Error = result.Error
	trace.ErrorField = result.ErrorField
	return trace
}
