package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bcbp_parser/internal/storage"
)

// MockPassStore is a mock implementation of the PostgreSQL pass store.
type MockPassStore struct {
	mock.Mock
}

func (m *MockPassStore) SavePass(ctx context.Context, p storage.SavePassParams) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPassStore) GetPass(ctx context.Context, id int64) (*storage.StoredPass, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredPass), args.Error(1)
}

func (m *MockPassStore) GetPassesByPNR(ctx context.Context, pnr string) ([]storage.StoredPass, error) {
	args := m.Called(ctx, pnr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.StoredPass), args.Error(1)
}

// MockEventSink is a mock implementation of the ClickHouse event sink.
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) InsertBatch(ctx context.Context, events []storage.ScanEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
