// Command-line entry point for the boarding pass parser.
//
// Note about input formats
// ------------------------
// extract reads one scan per line. A line may be:
//  1. NATS feed wrapper: {"source":{...}, "station":{...}, "scan":{"text":"M1..."}}
//  2. Flat scan:         {"id":1, "text":"M1...", ...}
//  3. Scanner SDK logs:  JSON with the payload nested under result/barcode/payload.
//  4. A bare BCBP payload.
//
// Use --all to keep scans even if no parser matched.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"bcbp_parser/internal/bcbp"
	"bcbp_parser/internal/codec"
	"bcbp_parser/internal/logger"
	_ "bcbp_parser/internal/parsers" // register all parsers via init()
	"bcbp_parser/internal/parsers/boardingpass"
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/scan"
	"bcbp_parser/internal/storage"
)

type ExtractOut struct {
	Scan    *scan.Scan `json:"scan"`
	Results []any      `json:"results,omitempty"`
}

type Stats struct {
	Lines        int
	ParsedNATS   int
	ParsedFlat   int
	ParsedNested int
	ParsedRaw    int
	SkippedEmpty int
	Emitted      int
	Decoded      int
	Failed       int
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "bcbp_parser - commands:")
	fmt.Fprintln(w, "  extract  - parse a scan log (JSONL or raw payloads) and output results")
	fmt.Fprintln(w, "  decode   - decode payloads given as arguments or on stdin")
	fmt.Fprintln(w, "  encode   - encode JSON records read from stdin")
	fmt.Fprintln(w, "  trace    - show every field each parser read from a payload")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  bcbp_parser extract --input scans.jsonl [--output out.json] [--pretty] [--all] [--stats] [--format json|cbor] [--sqlite passes.db]")
	fmt.Fprintln(w, "  bcbp_parser decode [--verbose] [--pretty] [--format json|cbor] [payload...]")
	fmt.Fprintln(w, "  bcbp_parser encode [--conditional] < record.json")
	fmt.Fprintln(w, "  bcbp_parser trace <payload>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Payloads are case and space sensitive; quote them on the command line.")
	fmt.Fprintln(w, "  - CBOR output is a sequence of deterministic CBOR items, one per result.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "extract":
		runExtract(os.Args[2:])
	case "decode":
		runDecode(os.Args[2:])
	case "encode":
		runEncode(os.Args[2:])
	case "trace":
		runTrace(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openInput(path string) (io.Reader, func()) {
	if path == "" {
		return os.Stdin, func() {}
	}
	f, err := os.Open(path)
	if err != nil {
		fatalf("Failed to open input: %v", err)
	}
	return f, func() { _ = f.Close() }
}

func openOutput(path string) (io.Writer, func()) {
	if path == "" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		fatalf("Failed to create output: %v", err)
	}
	return f, func() { _ = f.Close() }
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// JSON lines can be long; bump buffer.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 60*1024*1024)
	return scanner
}

func parseFormat(s string) codec.Format {
	f, err := codec.ParseFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return f
}

func runExtract(args []string) {
	fs := pflag.NewFlagSet("extract", pflag.ExitOnError)
	inPath := fs.String("input", "", "Input file (default: stdin)")
	outPath := fs.String("output", "", "Output file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	includeAll := fs.Bool("all", false, "Include scans even if no parser matched")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	format := fs.String("format", "json", "Output format: json or cbor")
	sqlitePath := fs.String("sqlite", "", "Archive every scan into this SQLite database")
	_ = fs.Parse(args)

	// Ensure parsers priority ordering is stable.
	registry.Default().Sort()

	in, closeIn := openInput(*inPath)
	defer closeIn()
	out, closeOut := openOutput(*outPath)
	defer closeOut()
	w := codec.NewWriter(out, parseFormat(*format), *pretty)

	var archive *storage.SQLiteDB
	if *sqlitePath != "" {
		db, err := storage.OpenSQLite(*sqlitePath)
		if err != nil {
			fatalf("Failed to open SQLite: %v", err)
		}
		defer db.Close()
		archive = db
	}

	scanner := newScanner(in)
	st := &Stats{}

	for scanner.Scan() {
		st.Lines++

		s, kind := scan.DecodeLine(scanner.Bytes())
		if s == nil {
			st.SkippedEmpty++
			continue
		}
		switch kind {
		case scan.KindNATS:
			st.ParsedNATS++
		case scan.KindFlat:
			st.ParsedFlat++
		case scan.KindNested:
			st.ParsedNested++
		case scan.KindRaw:
			st.ParsedRaw++
		}

		results := registry.Default().Dispatch(s)
		rany := make([]any, 0, len(results))
		matched := false
		for _, r := range results {
			rany = append(rany, r) // keep concrete types for marshal
			bp, ok := r.(*boardingpass.Result)
			if !ok {
				continue
			}
			matched = true
			if bp.OK() {
				st.Decoded++
			} else {
				st.Failed++
			}
			if archive != nil {
				if _, err := archive.Insert(storage.InsertParams{
					ScanID:      bp.ID,
					Timestamp:   bp.Timestamp,
					Source:      bp.Source,
					RawText:     s.Text,
					Pass:        bp.Pass,
					ErrorKind:   bp.ErrorKind,
					ErrorField:  bp.ErrorField,
					ErrorOffset: bp.ErrorOffset,
				}); err != nil {
					fatalf("Archive error: %v", err)
				}
			}
		}

		if !*includeAll && !matched {
			continue
		}
		if err := w.Write(ExtractOut{Scan: s, Results: rany}); err != nil {
			fatalf("Encode error: %v", err)
		}
		st.Emitted++
	}

	if err := scanner.Err(); err != nil {
		fatalf("Input read error: %v", err)
	}

	if *showStats {
		fmt.Fprintf(os.Stderr,
			"stats: lines=%d parsed(nats=%d flat=%d nested=%d raw=%d) skipped(empty)=%d emitted=%d decoded=%d failed=%d\n",
			st.Lines, st.ParsedNATS, st.ParsedFlat, st.ParsedNested, st.ParsedRaw, st.SkippedEmpty, st.Emitted, st.Decoded, st.Failed,
		)
	}
}

// DecodeOut is one decode command result.
type DecodeOut struct {
	Input  string       `json:"input"`
	Pass   *bcbp.Record `json:"pass,omitempty"`
	Error  string       `json:"error,omitempty"`
	Kind   string       `json:"kind,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

func runDecode(args []string) {
	fs := pflag.NewFlagSet("decode", pflag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Log every field read to stderr")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	format := fs.String("format", "json", "Output format: json or cbor")
	_ = fs.Parse(args)

	opts := logger.DefaultOptions()
	opts.Format = "console"
	opts.Level = "warn"
	if *verbose {
		opts.Level = "debug"
	}
	log, err := logger.New(opts)
	if err != nil {
		fatalf("Logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	dec := bcbp.NewDecoder(bcbp.WithLogger(log))
	w := codec.NewWriter(os.Stdout, parseFormat(*format), *pretty)

	inputs := fs.Args()
	if len(inputs) == 0 {
		scanner := newScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
				inputs = append(inputs, line)
			}
		}
		if err := scanner.Err(); err != nil {
			fatalf("Input read error: %v", err)
		}
	}

	failed := 0
	for _, in := range inputs {
		out := DecodeOut{Input: in}
		rec, err := dec.Decode(in)
		if err != nil {
			failed++
			out.Error = err.Error()
			out.Kind = bcbp.ErrorKind(err)
			out.Offset = bcbp.ErrorOffset(err)
			log.Warn("decode failed", zap.String("kind", out.Kind), zap.Error(err))
		}
		out.Pass = rec
		if err := w.Write(out); err != nil {
			fatalf("Encode error: %v", err)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runEncode(args []string) {
	fs := pflag.NewFlagSet("encode", pflag.ExitOnError)
	conditional := fs.Bool("conditional", false, "Emit conditional blocks and the security section")
	inPath := fs.String("input", "", "Input file of JSON records (default: stdin)")
	_ = fs.Parse(args)

	var opts []bcbp.EncoderOption
	if *conditional {
		opts = append(opts, bcbp.WithConditional())
	}
	enc := bcbp.NewEncoder(opts...)

	in, closeIn := openInput(*inPath)
	defer closeIn()

	jd := json.NewDecoder(in)
	for {
		var rec bcbp.Record
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fatalf("Invalid record: %v", err)
		}
		data, err := enc.Encode(&rec)
		if err != nil {
			fatalf("Encode error: %v", err)
		}
		fmt.Println(data)
	}
}

func runTrace(args []string) {
	fs := pflag.NewFlagSet("trace", pflag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fatalf("trace takes exactly one payload")
	}
	s := &scan.Scan{Text: fs.Arg(0)}

	var traces []*registry.TraceResult
	for _, p := range registry.Default().AllParsers() {
		if t, ok := p.(registry.Traceable); ok {
			traces = append(traces, t.ParseWithTrace(s))
		}
	}

	b, err := codec.Marshal(codec.FormatJSON, traces, true)
	if err != nil {
		fatalf("Encode error: %v", err)
	}
	fmt.Println(string(b))
}
