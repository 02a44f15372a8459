// Package unrecognised reports scans no format-specific parser claimed.
package unrecognised

import (
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/scan"
)

// Result describes a payload nothing else could parse.
type Result struct {
	ID         int64  `json:"scan_id,omitempty"`
	FormatCode string `json:"format_code,omitempty"`
	Length     int    `json:"length"`
	Symbology  string `json:"symbology,omitempty"`
}

func (r *Result) Type() string  { return "unrecognised" }
func (r *Result) ScanID() int64 { return r.ID }

// Parser is the catch-all.
type Parser struct{}

func init() {
	registry.RegisterCatchAll(&Parser{})
}

func (p *Parser) Name() string                { return "unrecognised" }
func (p *Parser) FormatCodes() []string       { return nil }
func (p *Parser) Priority() int               { return 1000 }
func (p *Parser) QuickCheck(text string) bool { return text != "" }

func (p *Parser) Parse(s *scan.Scan) registry.Result {
	if s.Text == "" {
		return nil
	}
	return &Result{
		ID:         int64(s.ID),
		FormatCode: s.Text[:1],
		Length:     len(s.Text),
		Symbology:  s.Symbology,
	}
}
