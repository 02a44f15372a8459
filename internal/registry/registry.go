// Package registry provides a parser registry for dispatching barcode scans
// to the parser that understands their format code.
package registry

import (
	"sort"
	"sync"

	"bcbp_parser/internal/scan"
)

// Result is the common interface for all parse results.
type Result interface {
	Type() string  // e.g., "boarding_pass", "unrecognised"
	ScanID() int64 // The original scan ID
}

// Parser is implemented by each payload parser.
type Parser interface {
	// Name returns the parser's unique identifier.
	Name() string

	// FormatCodes returns the leading payload characters this parser handles.
	// Empty slice means "all payloads" (content-based parser).
	FormatCodes() []string

	// QuickCheck performs a cheap check before the full decode.
	// Returns true if the payload MIGHT be parseable (false = definitely skip).
	QuickCheck(text string) bool

	// Priority determines order when multiple parsers match the same code.
	// Lower number = checked first.
	Priority() int

	// Parse attempts to parse the scan, returns nil if not applicable.
	Parse(s *scan.Scan) Result
}

// Registry holds all registered parsers organised for efficient dispatch.
type Registry struct {
	mu sync.RWMutex

	// byCode maps format codes to parser slices, sorted by Priority (ascending)
	byCode map[string][]Parser

	// global holds parsers that check all payloads
	global []Parser

	// catchAll holds parsers that run only when nothing else matched
	catchAll []Parser

	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		byCode: make(map[string][]Parser),
	}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a parser to the default registry.
// Called during init() in each parser package.
func Register(p Parser) {
	defaultRegistry.Register(p)
}

// RegisterCatchAll adds a catch-all parser that runs when nothing else matches.
func RegisterCatchAll(p Parser) {
	defaultRegistry.RegisterCatchAll(p)
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := p.FormatCodes()
	if len(codes) == 0 {
		r.global = append(r.global, p)
	} else {
		for _, code := range codes {
			r.byCode[code] = append(r.byCode[code], p)
		}
	}
	r.sorted = false
}

// RegisterCatchAll adds a catch-all parser.
func (r *Registry) RegisterCatchAll(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catchAll = append(r.catchAll, p)
	r.sorted = false
}

// Sort sorts all parser slices by priority. Call before dispatching.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	byPriority := func(ps []Parser) {
		sort.SliceStable(ps, func(i, j int) bool {
			return ps[i].Priority() < ps[j].Priority()
		})
	}
	for code := range r.byCode {
		byPriority(r.byCode[code])
	}
	byPriority(r.global)
	byPriority(r.catchAll)

	r.sorted = true
}

func formatCode(s *scan.Scan) string {
	if s.Text == "" {
		return ""
	}
	return s.Text[:1]
}

// Dispatch routes a scan to the matching parsers and returns all results.
// If Sort() has not been called, parsers run in registration order.
func (r *Registry) Dispatch(s *scan.Scan) []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []Result

	// 1. Format-code specific parsers
	for _, p := range r.byCode[formatCode(s)] {
		if !p.QuickCheck(s.Text) {
			continue
		}
		if result := p.Parse(s); result != nil {
			results = append(results, result)
		}
	}

	// 2. Global parsers
	for _, p := range r.global {
		if !p.QuickCheck(s.Text) {
			continue
		}
		if result := p.Parse(s); result != nil {
			results = append(results, result)
		}
	}

	// 3. If nothing matched, try catch-all parsers
	if len(results) == 0 {
		for _, p := range r.catchAll {
			if result := p.Parse(s); result != nil {
				results = append(results, result)
			}
		}
	}

	return results
}

// DispatchFirst returns only the first successful parse result.
func (r *Registry) DispatchFirst(s *scan.Scan) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byCode[formatCode(s)] {
		if !p.QuickCheck(s.Text) {
			continue
		}
		if result := p.Parse(s); result != nil {
			return result
		}
	}

	for _, p := range r.global {
		if !p.QuickCheck(s.Text) {
			continue
		}
		if result := p.Parse(s); result != nil {
			return result
		}
	}

	for _, p := range r.catchAll {
		if result := p.Parse(s); result != nil {
			return result
		}
	}

	return nil
}

// Find returns the registered parser with the given name.
func (r *Registry) Find(name string) (Parser, bool) {
	for _, p := range r.AllParsers() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// RegisteredCodes returns all format codes that have parsers registered.
func (r *Registry) RegisteredCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ParserCount returns the total number of unique registered parsers.
func (r *Registry) ParserCount() int {
	return len(r.AllParsers())
}

// AllParsers returns all registered parsers (global, code-specific, and catch-all),
// each once.
func (r *Registry) AllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Parser
	add := func(p Parser) {
		if !seen[p.Name()] {
			seen[p.Name()] = true
			result = append(result, p)
		}
	}

	for _, p := range r.global {
		add(p)
	}
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		for _, p := range r.byCode[code] {
			add(p)
		}
	}
	for _, p := range r.catchAll {
		add(p)
	}

	return result
}
