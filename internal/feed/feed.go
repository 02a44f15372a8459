// Package feed consumes barcode scans from NATS, decodes them through the
// parser registry, stores the outcome and republishes the result.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"bcbp_parser/internal/codec"
	"bcbp_parser/internal/metrics"
	"bcbp_parser/internal/parsers/boardingpass"
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/scan"
	"bcbp_parser/internal/storage"
)

var (
	// ErrNoPayload is returned for messages without scan text.
	ErrNoPayload = errors.New("feed: message has no scan payload")
	// ErrNotBoardingPass is returned when no boarding pass parser claimed the scan.
	ErrNotBoardingPass = errors.New("feed: scan is not a boarding pass")
)

// PassStore persists decoded passes.
type PassStore interface {
	SavePass(ctx context.Context, p storage.SavePassParams) (int64, error)
}

// EventSink records scan outcomes in batches.
type EventSink interface {
	InsertBatch(ctx context.Context, events []storage.ScanEvent) error
}

// Archive keeps every scan, decoded or not.
type Archive interface {
	Insert(p storage.InsertParams) (int64, error)
}

// Publisher sends encoded results. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Options wires a Consumer. Every store is optional.
type Options struct {
	Registry      *registry.Registry
	Passes        PassStore
	Events        EventSink
	Archive       Archive
	Publisher     Publisher
	OutputSubject string
	OutputFormat  codec.Format
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	BatchSize     int           // events buffered before a flush (default 500)
	FlushInterval time.Duration // periodic flush in Run (default 5s)
}

// Consumer handles scan messages one at a time.
type Consumer struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	pending []storage.ScanEvent
}

// New returns a Consumer. A nil registry uses the default one.
func New(opts Options) *Consumer {
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = codec.FormatJSON
	}
	return &Consumer{opts: opts, log: opts.Logger}
}

// Handle decodes one message. Decode failures are not errors: they come back
// as a Result with Error set, and are stored and published like successes.
func (c *Consumer) Handle(ctx context.Context, data []byte) (*boardingpass.Result, error) {
	s, _ := scan.DecodeLine(data)
	if s == nil {
		return nil, ErrNoPayload
	}

	start := time.Now()
	var bp *boardingpass.Result
	var parserName string
	for _, r := range c.opts.Registry.Dispatch(s) {
		parserName = r.Type()
		if res, ok := r.(*boardingpass.Result); ok {
			bp = res
			break
		}
	}
	elapsed := time.Since(start)

	event := storage.ScanEvent{
		ScanID:     int64(s.ID),
		Timestamp:  s.Time(),
		Source:     s.Source,
		Symbology:  s.Symbology,
		Parser:     parserName,
		PayloadLen: uint16(min(len(s.Text), 0xFFFF)),
		DecodeTime: elapsed,
	}
	if s.Station != nil {
		event.Airport = s.Station.Airport
		event.Gate = s.Station.Gate
	}

	if bp == nil {
		event.Outcome = "unrecognised"
		c.record(ctx, event)
		c.opts.Metrics.ObserveScan(parserName, "unrecognised", 0, elapsed)
		return nil, ErrNotBoardingPass
	}

	legs := 0
	if bp.OK() {
		event.Outcome = "ok"
		legs = len(bp.Pass.Legs)
		event.Legs = uint8(legs)
		if legs > 0 {
			l := bp.Pass.Legs[0]
			event.Airline, event.FlightNumber, event.Origin, event.Destination = l.Airline, l.FlightNumber, l.From, l.To
		}
	} else {
		event.Outcome = "error"
		event.ErrorKind = bp.ErrorKind
		c.log.Debug("decode failed",
			zap.Int64("scan_id", bp.ID),
			zap.String("kind", bp.ErrorKind),
			zap.String("field", bp.ErrorField),
			zap.Int("offset", bp.ErrorOffset))
	}
	c.opts.Metrics.ObserveScan(parserName, bp.ErrorKind, legs, elapsed)

	c.store(ctx, s, bp)
	c.record(ctx, event)

	if err := c.publish(bp); err != nil {
		return bp, err
	}
	return bp, nil
}

func (c *Consumer) store(ctx context.Context, s *scan.Scan, bp *boardingpass.Result) {
	if c.opts.Archive != nil {
		_, err := c.opts.Archive.Insert(storage.InsertParams{
			ScanID:      bp.ID,
			Timestamp:   s.Timestamp,
			Source:      s.Source,
			RawText:     s.Text,
			Pass:        bp.Pass,
			ErrorKind:   bp.ErrorKind,
			ErrorField:  bp.ErrorField,
			ErrorOffset: bp.ErrorOffset,
		})
		if err != nil {
			c.opts.Metrics.ObserveStoreError("sqlite")
			c.log.Warn("archive scan", zap.Error(err))
		}
	}

	if c.opts.Passes != nil && bp.OK() {
		_, err := c.opts.Passes.SavePass(ctx, storage.SavePassParams{
			RawData:   s.Text,
			ScanID:    bp.ID,
			Source:    s.Source,
			ScannedAt: s.Time(),
			Record:    bp.Pass,
		})
		if err != nil {
			c.opts.Metrics.ObserveStoreError("postgres")
			c.log.Warn("save pass", zap.Error(err))
		}
	}
}

func (c *Consumer) publish(bp *boardingpass.Result) error {
	if c.opts.Publisher == nil || c.opts.OutputSubject == "" {
		return nil
	}
	b, err := codec.Marshal(c.opts.OutputFormat, bp, false)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.opts.Publisher.Publish(c.opts.OutputSubject, b); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// record buffers an event, flushing when the batch is full.
func (c *Consumer) record(ctx context.Context, e storage.ScanEvent) {
	if c.opts.Events == nil {
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, e)
	full := len(c.pending) >= c.opts.BatchSize
	c.mu.Unlock()

	if full {
		if err := c.Flush(ctx); err != nil {
			c.log.Warn("flush scan events", zap.Error(err))
		}
	}
}

// Flush writes buffered events. Events are dropped on failure.
func (c *Consumer) Flush(ctx context.Context) error {
	if c.opts.Events == nil {
		return nil
	}
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := c.opts.Events.InsertBatch(ctx, batch); err != nil {
		c.opts.Metrics.ObserveStoreError("clickhouse")
		return fmt.Errorf("insert %d events: %w", len(batch), err)
	}
	return nil
}

// Pending returns the number of buffered events.
func (c *Consumer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Connect dials NATS with unlimited reconnects, logging connection changes.
func Connect(url, name string, log *zap.Logger) (*nats.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// Run queue-subscribes to subject and handles messages until ctx is done,
// then drains the subscription and flushes buffered events.
func (c *Consumer) Run(ctx context.Context, nc *nats.Conn, subject, queue string) error {
	msgs := make(chan *nats.Msg, 1024)
	sub, err := nc.ChanQueueSubscribe(subject, queue, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.log.Info("consuming scans", zap.String("subject", subject), zap.String("queue", queue))

	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := sub.Drain(); err != nil {
				c.log.Warn("drain subscription", zap.Error(err))
			}
			// Handle what was already delivered.
			for drained := false; !drained; {
				select {
				case m := <-msgs:
					c.handleMsg(context.Background(), m)
				default:
					drained = true
				}
			}
			return c.Flush(context.Background())
		case m := <-msgs:
			c.handleMsg(ctx, m)
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				c.log.Warn("flush scan events", zap.Error(err))
			}
		}
	}
}

func (c *Consumer) handleMsg(ctx context.Context, m *nats.Msg) {
	if _, err := c.Handle(ctx, m.Data); err != nil && !errors.Is(err, ErrNotBoardingPass) {
		c.log.Warn("handle scan", zap.String("subject", m.Subject), zap.Error(err))
	}
}
