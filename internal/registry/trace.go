package registry

import (
	"bcbp_parser/internal/bcbp"
	"bcbp_parser/internal/scan"
)

// TraceResult contains trace information from a parser's attempt to parse a scan.
type TraceResult struct {
	ParserName string            `json:"parser"`
	QuickCheck *QuickCheck       `json:"quick_check,omitempty"`
	Fields     []bcbp.FieldTrace `json:"fields,omitempty"` // Every field read, in payload order.
	Matched    bool              `json:"matched"`
	Error      string            `json:"error,omitempty"`
	ErrorField string            `json:"error_field,omitempty"`
}

// QuickCheck contains the result of a parser's quick check.
type QuickCheck struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// Traceable is implemented by parsers that support debug tracing.
// This allows the trace command to show exactly which field a decode
// stopped at.
type Traceable interface {
	ParseWithTrace(s *scan.Scan) *TraceResult
}
