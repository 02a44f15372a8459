package scan

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind names the input shape a scan was decoded from.
type Kind string

const (
	KindNATS   Kind = "nats"
	KindFlat   Kind = "flat"
	KindNested Kind = "nested"
	KindRaw    Kind = "raw"
)

// DecodeLine autodetects one input line: a NATS wrapper, a flat scan, a
// vendor log with the payload nested somewhere known, or a bare payload.
// It returns nil when the line holds no payload text.
func DecodeLine(b []byte) (*Scan, Kind) {
	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, ""
	}
	if line[0] != '{' {
		return &Scan{Text: strings.TrimRight(string(b), "\r\n")}, KindRaw
	}

	// 1) NATS wrapper
	var w NATSWrapper
	if err := json.Unmarshal(b, &w); err == nil && w.Scan != nil {
		if s := w.ToScan(); s != nil && s.Text != "" {
			return s, KindNATS
		}
	}

	// 2) Flat scan
	var s Scan
	if err := json.Unmarshal(b, &s); err == nil && s.Text != "" {
		return &s, KindFlat
	}

	// 3) Nested vendor formats
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, ""
	}
	if n := buildFromNested(root); n != nil {
		return n, KindNested
	}
	return nil, ""
}

// buildFromNested tries the paths used by common scanner SDK logs.
func buildFromNested(root map[string]any) *Scan {
	text := firstString(root,
		"data",
		"barcode.data",
		"barcode.text",
		"result.text",
		"result.barcodeText",
		"payload.text",
		"decoded.text",
	)
	if text == "" {
		return nil
	}

	ts := firstString(root, "timestamp", "time", "result.timestamp")
	if ts == "" {
		if ms := firstInt64(root, "ts", "result.ts", "epoch_ms"); ms > 0 {
			ts = time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
		}
	}

	s := &Scan{
		ID:        FlexInt64(firstInt64(root, "id", "result.id")),
		Source:    firstString(root, "source", "app.name"),
		Timestamp: ts,
		Symbology: strings.ToLower(firstString(root, "symbology", "barcode.format", "result.format", "format")),
		Text:      text,
	}
	if dev := firstString(root, "device.id", "device_id", "reader"); dev != "" {
		s.Device = &Device{ID: dev}
	}
	if apt := firstString(root, "station.airport", "airport"); apt != "" {
		s.Station = &Station{Airport: apt, Gate: firstString(root, "station.gate", "gate")}
	}
	return s
}

func firstString(root map[string]any, paths ...string) string {
	for _, p := range paths {
		if v, ok := deepGet(root, p); ok {
			switch t := v.(type) {
			case string:
				if strings.TrimSpace(t) != "" {
					return t
				}
			case float64:
				if t == float64(int64(t)) {
					return strconv.FormatInt(int64(t), 10)
				}
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstInt64(root map[string]any, paths ...string) int64 {
	for _, p := range paths {
		if v, ok := deepGet(root, p); ok {
			switch t := v.(type) {
			case float64:
				return int64(t)
			case string:
				if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
					return i
				}
			}
		}
	}
	return 0
}

// deepGet walks a map[string]any using a dotted path: "a.b.c".
func deepGet(root map[string]any, dotted string) (any, bool) {
	var cur any = root
	for _, part := range strings.Split(dotted, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
