// Package scan provides the inbound barcode scan types read from feeds and files.
package scan

import (
	"encoding/json"
	"strconv"
	"time"
)

// FlexInt64 handles JSON fields that can be either string or number.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	// Try as number first
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexInt64(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil // Scanner IDs are advisory; bad ones read as 0.
		}
		*f = FlexInt64(i)
		return nil
	}

	*f = 0
	return nil
}

// Scan is one decoded barcode read. Text holds the boarding pass payload.
// It can be populated directly from flat JSON or extracted from NATSWrapper.
type Scan struct {
	ID        FlexInt64 `json:"id"`
	Source    string    `json:"source"`
	Timestamp string    `json:"timestamp"`
	Symbology string    `json:"symbology,omitempty"` // pdf417, aztec, qr, datamatrix.
	Text      string    `json:"text"`

	Station *Station `json:"station,omitempty"`
	Device  *Device  `json:"device,omitempty"`
}

// Time parses Timestamp as RFC 3339, falling back to zero.
func (s *Scan) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatCode returns the first byte of the payload, or 0 for an empty one.
func (s *Scan) FormatCode() byte {
	if s.Text == "" {
		return 0
	}
	return s.Text[0]
}

// Station identifies where a scan happened.
type Station struct {
	Airport    string `json:"airport,omitempty"`
	Terminal   string `json:"terminal,omitempty"`
	Gate       string `json:"gate,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"` // security, boarding, lounge.
}

// Device identifies the reader hardware.
type Device struct {
	ID    string `json:"id,omitempty"`
	Model string `json:"model,omitempty"`
}

// NATSWrapper represents the feed format where the scan is nested inside a
// "scan" field with metadata at the top level.
type NATSWrapper struct {
	Source  *NATSSource `json:"source,omitempty"`
	Station *Station    `json:"station,omitempty"`
	Device  *Device     `json:"device,omitempty"`
	Scan    *NATSInner  `json:"scan,omitempty"`
}

// NATSSource contains source metadata from the feed.
type NATSSource struct {
	Name        string `json:"name,omitempty"`
	Application string `json:"application,omitempty"`
}

// NATSInner is the inner scan structure from the feed.
type NATSInner struct {
	ID        FlexInt64 `json:"id"`
	Timestamp string    `json:"timestamp"`
	Symbology string    `json:"symbology,omitempty"`
	Text      string    `json:"text"`
	DeviceID  string    `json:"device_id,omitempty"`
}

// ToScan converts a NATSWrapper to a unified Scan.
func (w *NATSWrapper) ToScan() *Scan {
	if w.Scan == nil {
		return nil
	}

	s := &Scan{
		ID:        w.Scan.ID,
		Timestamp: w.Scan.Timestamp,
		Symbology: w.Scan.Symbology,
		Text:      w.Scan.Text,
		Station:   w.Station,
		Device:    w.Device,
	}
	if w.Source != nil {
		s.Source = w.Source.Name
	}

	// Use the inner device id if the wrapper has none.
	if s.Device == nil && w.Scan.DeviceID != "" {
		s.Device = &Device{ID: w.Scan.DeviceID}
	}

	return s
}
