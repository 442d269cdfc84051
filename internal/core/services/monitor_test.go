package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"status-notification/internal/core/domain"
	"status-notification/internal/testutil"
)

var testNow = time.Date(2025, 7, 18, 12, 45, 0, 0, time.UTC)

func newTestMonitorService(repo *testutil.MockMonitorRepo, keys ...string) *MonitorService {
	svc := NewMonitorService(repo, nil, 5*time.Minute, keys)
	svc.now = func() time.Time { return testNow }
	return svc
}

func ago(d time.Duration) *time.Time {
	ts := testNow.Add(-d)
	return &ts
}

func TestMonitorService_UpdateStatus(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	repo.On("Touch", mock.Anything, "Energy_SolDar", "PLC1", testNow).Return(nil)

	err := svc.UpdateStatus(context.Background(), domain.Heartbeat{ObjectName: "Energy_SolDar", SubObjectName: "PLC1"}, "")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMonitorService_UpdateStatus_Legacy(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	repo.On("Touch", mock.Anything, "Energy_SolDar", "Energy_SolDar", testNow).Return(nil)

	err := svc.UpdateStatus(context.Background(), domain.Heartbeat{ProgramName: "Energy_SolDar", APIKey: "Energy_SolDar"}, "")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMonitorService_UpdateStatus_MissingTarget(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	err := svc.UpdateStatus(context.Background(), domain.Heartbeat{ObjectName: "Energy_SolDar"}, "")
	assert.ErrorIs(t, err, domain.ErrMissingTarget)
	repo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorService_UpdateStatus_APIKeys(t *testing.T) {
	tests := []struct {
		name      string
		hb        domain.Heartbeat
		headerKey string
		wantErr   error
	}{
		{"legacy authorized", domain.Heartbeat{ProgramName: "P", APIKey: "secret"}, "", nil},
		{"legacy unauthorized", domain.Heartbeat{ProgramName: "P", APIKey: "guess"}, "secret", domain.ErrUnauthorized},
		{"header authorized", domain.Heartbeat{ObjectName: "O", SubObjectName: "S"}, "secret", nil},
		{"header missing", domain.Heartbeat{ObjectName: "O", SubObjectName: "S"}, "", domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(testutil.MockMonitorRepo)
			svc := newTestMonitorService(repo, "secret", "other")
			repo.On("Touch", mock.Anything, mock.Anything, mock.Anything, testNow).Return(nil)

			err := svc.UpdateStatus(context.Background(), tt.hb, tt.headerKey)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMonitorService_UpdateStatus_RepoError(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)
	repo.On("Touch", mock.Anything, "O", "S", testNow).Return(errors.New("disk full"))

	err := svc.UpdateStatus(context.Background(), domain.Heartbeat{ObjectName: "O", SubObjectName: "S"}, "")
	assert.EqualError(t, err, "disk full")
}

func TestMonitorService_StatusTree(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	repo.On("ListObjects", mock.Anything).Return([]*domain.Object{
		{Name: "Energy_SolDar", Children: []*domain.SubObject{
			{Name: "PLC1", LastUpdate: ago(time.Minute)},
			{Name: "PLC2", LastUpdate: ago(10 * time.Minute), Paused: true},
		}},
		{Name: "Empty", Paused: true, Children: []*domain.SubObject{}},
	}, nil)

	tree, err := svc.StatusTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, "Energy_SolDar", tree[0].Name)
	assert.Equal(t, domain.StatusActive, tree[0].Children[0].Status)
	assert.Equal(t, domain.StatusInactive, tree[0].Children[1].Status)
	assert.True(t, tree[0].Children[1].Paused)
	assert.True(t, tree[1].Paused)
	assert.Empty(t, tree[1].Children)
}

func TestMonitorService_StatusTree_Error(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)
	repo.On("ListObjects", mock.Anything).Return(nil, errors.New("boom"))

	_, err := svc.StatusTree(context.Background())
	assert.Error(t, err)
}

func TestMonitorService_CheckStatus(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	repo.On("ListObjects", mock.Anything).Return([]*domain.Object{
		{Name: "healthy", Children: []*domain.SubObject{{LastUpdate: ago(time.Second)}}},
		{Name: "silent", Children: []*domain.SubObject{
			{LastUpdate: ago(time.Second)},
			{LastUpdate: ago(time.Hour)},
		}},
		{Name: "paused", Paused: true, Children: []*domain.SubObject{{LastUpdate: ago(time.Hour)}}},
		{Name: "never", Children: []*domain.SubObject{{}}},
	}, nil)

	status, err := svc.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"healthy", "silent", "paused", "never"}, status.AllPrograms)
	assert.Equal(t, []string{"silent"}, status.InactivePrograms)
}

func TestMonitorService_PauseResume(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)
	ctx := context.Background()

	repo.On("SetObjectPaused", mock.Anything, "O", true).Return(nil).Once()
	repo.On("SetSubObjectPaused", mock.Anything, "O", "S", true).Return(nil).Once()
	repo.On("SetObjectPaused", mock.Anything, "O", false).Return(nil).Once()
	repo.On("SetSubObjectPaused", mock.Anything, "O", "S", false).Return(domain.ErrSubObjectNotFound).Once()

	assert.NoError(t, svc.Pause(ctx, "O", ""))
	assert.NoError(t, svc.Pause(ctx, "O", "S"))
	assert.NoError(t, svc.Resume(ctx, "O", ""))
	assert.ErrorIs(t, svc.Resume(ctx, "O", "S"), domain.ErrSubObjectNotFound)
	assert.ErrorIs(t, svc.Pause(ctx, "", "S"), domain.ErrMissingObjectName)
	repo.AssertExpectations(t)
}

func TestMonitorService_Delete(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)
	ctx := context.Background()

	repo.On("DeleteObject", mock.Anything, "O").Return(nil)
	repo.On("DeleteSubObject", mock.Anything, "O", "S").Return(nil)

	assert.NoError(t, svc.Delete(ctx, "O", ""))
	assert.NoError(t, svc.Delete(ctx, "O", "S"))
	assert.ErrorIs(t, svc.Delete(ctx, "", ""), domain.ErrMissingObjectName)
	repo.AssertExpectations(t)
}

func TestMonitorService_Ready(t *testing.T) {
	repo := new(testutil.MockMonitorRepo)
	svc := newTestMonitorService(repo)

	repo.On("Ping", mock.Anything).Return(errors.New("closed")).Once()
	repo.On("Ping", mock.Anything).Return(nil).Once()

	assert.ErrorContains(t, svc.Ready(context.Background()), "storage unavailable")
	assert.NoError(t, svc.Ready(context.Background()))
}
