package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"status-notification/internal/core/domain"
)

// MockMonitorRepo is a mock of MonitorRepository.
type MockMonitorRepo struct {
	mock.Mock
}

func (m *MockMonitorRepo) Touch(ctx context.Context, object, sub string, at time.Time) error {
	args := m.Called(ctx, object, sub, at)
	return args.Error(0)
}

func (m *MockMonitorRepo) ListObjects(ctx context.Context) ([]*domain.Object, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Object), args.Error(1)
}

func (m *MockMonitorRepo) SetObjectPaused(ctx context.Context, object string, paused bool) error {
	args := m.Called(ctx, object, paused)
	return args.Error(0)
}

func (m *MockMonitorRepo) SetSubObjectPaused(ctx context.Context, object, sub string, paused bool) error {
	args := m.Called(ctx, object, sub, paused)
	return args.Error(0)
}

func (m *MockMonitorRepo) DeleteObject(ctx context.Context, object string) error {
	args := m.Called(ctx, object)
	return args.Error(0)
}

func (m *MockMonitorRepo) DeleteSubObject(ctx context.Context, object, sub string) error {
	args := m.Called(ctx, object, sub)
	return args.Error(0)
}

func (m *MockMonitorRepo) SetNotified(ctx context.Context, subID int64, notified bool) error {
	args := m.Called(ctx, subID, notified)
	return args.Error(0)
}

func (m *MockMonitorRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMonitorRepo) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockNotifier records every message and returns Err, if set.
type MockNotifier struct {
	mu       sync.Mutex
	Err      error
	messages []string
}

func (n *MockNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.Err
}

func (n *MockNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
