package feed

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bcbp_parser/internal/codec"
	"bcbp_parser/internal/metrics"
	"bcbp_parser/internal/parsers/boardingpass"
	"bcbp_parser/internal/parsers/unrecognised"
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/storage"
	"bcbp_parser/internal/storage/mocks"
)

const pass = "M1DESMARAIS/LUC       EABC123 YULFRAAC 0834 326J001A0025 100^100"

type publishCall struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.calls = append(f.calls, publishCall{subject, data})
	return f.err
}

type fakeArchive struct {
	rows []storage.InsertParams
}

func (f *fakeArchive) Insert(p storage.InsertParams) (int64, error) {
	f.rows = append(f.rows, p)
	return int64(len(f.rows)), nil
}

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register(boardingpass.New(nil))
	r.RegisterCatchAll(&unrecognised.Parser{})
	r.Sort()
	return r
}

func natsMessage(id int, text string) []byte {
	return []byte(`{"source":{"name":"gate-reader"},"station":{"airport":"YUL","gate":"A12"},` +
		`"scan":{"id":` + strconv.Itoa(id) + `,"timestamp":"2024-01-15T12:00:00Z","symbology":"pdf417","text":"` + text + `"}}`)
}

func TestConsumer_HandleDecoded(t *testing.T) {
	passes := new(mocks.MockPassStore)
	events := new(mocks.MockEventSink)
	pub := &fakePublisher{}
	archive := &fakeArchive{}

	passes.On("SavePass", mock.Anything, mock.MatchedBy(func(p storage.SavePassParams) bool {
		return p.RawData == pass && p.ScanID == 42 && p.Source == "gate-reader" && p.Record != nil
	})).Return(int64(1), nil)

	c := New(Options{
		Registry:      testRegistry(),
		Passes:        passes,
		Events:        events,
		Archive:       archive,
		Publisher:     pub,
		OutputSubject: "bcbp.decoded",
		Metrics:       metrics.New("test", nil),
	})

	res, err := c.Handle(context.Background(), natsMessage(42, pass))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.OK())
	assert.Equal(t, "DESMARAIS", res.Pass.LastName)

	passes.AssertExpectations(t)

	require.Len(t, archive.rows, 1)
	assert.Equal(t, pass, archive.rows[0].RawText)

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "bcbp.decoded", pub.calls[0].subject)
	assert.Contains(t, string(pub.calls[0].data), `"last_name":"DESMARAIS"`)

	assert.Equal(t, 1, c.Pending())

	events.On("InsertBatch", mock.Anything, mock.MatchedBy(func(evs []storage.ScanEvent) bool {
		return len(evs) == 1 && evs[0].Outcome == "ok" && evs[0].Airline == "AC" &&
			evs[0].Airport == "YUL" && evs[0].Gate == "A12" && evs[0].Legs == 1
	})).Return(nil).Once()
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Pending())
	events.AssertExpectations(t)
}

func TestConsumer_HandleDecodeFailure(t *testing.T) {
	passes := new(mocks.MockPassStore)
	archive := &fakeArchive{}

	c := New(Options{Registry: testRegistry(), Passes: passes, Archive: archive})

	res, err := c.Handle(context.Background(), []byte(pass+"X"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.OK())
	assert.Equal(t, "trailing_data", res.ErrorKind)
	assert.Equal(t, len(pass), res.ErrorOffset)

	// Failed decodes are archived but never saved as passes.
	passes.AssertNotCalled(t, "SavePass", mock.Anything, mock.Anything)
	require.Len(t, archive.rows, 1)
	assert.Equal(t, "trailing_data", archive.rows[0].ErrorKind)
	assert.Nil(t, archive.rows[0].Pass)
}

func TestConsumer_HandleBadLegsCount(t *testing.T) {
	const zeroLegs = "M0BRUNER/ROMAN MR     EJNUFFX MUCSVOSU 2327 231L013A0052 100"

	passes := new(mocks.MockPassStore)
	events := new(mocks.MockEventSink)
	archive := &fakeArchive{}
	c := New(Options{Registry: testRegistry(), Passes: passes, Events: events, Archive: archive, BatchSize: 1})

	events.On("InsertBatch", mock.Anything, mock.MatchedBy(func(evs []storage.ScanEvent) bool {
		return len(evs) == 1 && evs[0].Outcome == "error" && evs[0].ErrorKind == "invalid_legs_count"
	})).Return(nil).Once()

	res, err := c.Handle(context.Background(), []byte(zeroLegs))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "invalid_legs_count", res.ErrorKind)

	passes.AssertNotCalled(t, "SavePass", mock.Anything, mock.Anything)
	require.Len(t, archive.rows, 1)
	assert.Equal(t, "invalid_legs_count", archive.rows[0].ErrorKind)
	events.AssertExpectations(t)
}

func TestConsumer_HandleRejects(t *testing.T) {
	events := new(mocks.MockEventSink)
	c := New(Options{Registry: testRegistry(), Events: events, BatchSize: 1})

	_, err := c.Handle(context.Background(), []byte(`{"foo":"bar"}`))
	assert.ErrorIs(t, err, ErrNoPayload)

	events.On("InsertBatch", mock.Anything, mock.MatchedBy(func(evs []storage.ScanEvent) bool {
		return len(evs) == 1 && evs[0].Outcome == "unrecognised" && evs[0].Parser == "unrecognised"
	})).Return(nil).Once()

	_, err = c.Handle(context.Background(), []byte("S2SOMETHINGELSE"))
	assert.ErrorIs(t, err, ErrNotBoardingPass)
	events.AssertExpectations(t)
	assert.Equal(t, 0, c.Pending())
}

func TestConsumer_PublishCBOR(t *testing.T) {
	pub := &fakePublisher{}
	c := New(Options{
		Registry:      testRegistry(),
		Publisher:     pub,
		OutputSubject: "out",
		OutputFormat:  codec.FormatCBOR,
	})

	_, err := c.Handle(context.Background(), []byte(pass))
	require.NoError(t, err)
	require.Len(t, pub.calls, 1)

	var back boardingpass.Result
	require.NoError(t, codec.UnmarshalCBOR(pub.calls[0].data, &back))
	require.NotNil(t, back.Pass)
	assert.Equal(t, "ABC123", back.Pass.Legs[0].PNR)

	pub.err = errors.New("nats down")
	_, err = c.Handle(context.Background(), []byte(pass))
	assert.Error(t, err)
}

func TestConsumer_FlushError(t *testing.T) {
	events := new(mocks.MockEventSink)
	c := New(Options{Registry: testRegistry(), Events: events})

	_, err := c.Handle(context.Background(), []byte(pass))
	require.NoError(t, err)

	events.On("InsertBatch", mock.Anything, mock.Anything).Return(errors.New("clickhouse down")).Once()
	assert.Error(t, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Pending())
	assert.NoError(t, c.Flush(context.Background()))
}
