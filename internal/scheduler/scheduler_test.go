package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentstats/server/internal/listings"
	"rentstats/server/internal/models"
)

type MockReloader struct {
	mock.Mock
	calls atomic.Int32
}

func (m *MockReloader) Reload(ctx context.Context) (*listings.Store, error) {
	m.calls.Add(1)
	args := m.Called(ctx)
	store, _ := args.Get(0).(*listings.Store)
	return store, args.Error(1)
}

type MockRegionStats struct {
	mock.Mock
}

func (m *MockRegionStats) StatsForRegions(regions []models.Region) ([]models.StatsResult, error) {
	args := m.Called(regions)
	results, _ := args.Get(0).([]models.StatsResult)
	return results, args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) SaveRegionSnapshots(ctx context.Context, snapshots []models.RegionSnapshot) error {
	args := m.Called(ctx, snapshots)
	return args.Error(0)
}

func (m *MockSnapshotStore) PruneRegionSnapshots(ctx context.Context, keep int) (int64, error) {
	args := m.Called(ctx, keep)
	return args.Get(0).(int64), args.Error(1)
}

var testRegions = []models.Region{
	{Name: "mitte", Latitude: 52.52, Longitude: 13.405, RadiusKm: 3, Ranked: true},
	{Name: "altona", Latitude: 53.55, Longitude: 9.93, RadiusKm: 4, Ranked: true},
}

func TestJobType_String(t *testing.T) {
	assert.Equal(t, "startup", JobTypeStartup.String())
	assert.Equal(t, "scheduled", JobTypeScheduled.String())
	assert.Equal(t, "ingest", JobTypeIngest.String())
	assert.Equal(t, "unknown", JobType(42).String())
}

func TestScheduler_Refresh(t *testing.T) {
	logger := logrus.New()
	store := listings.NewStore([]models.Listing{
		{ExternalID: "a", Latitude: 52.52, Longitude: 13.405, LivingSpace: 50, TotalRent: 700},
	}, logger)

	reloader := &MockReloader{}
	reloader.On("Reload", mock.Anything).Return(store, nil).Once()

	stats := &MockRegionStats{}
	stats.On("StatsForRegions", testRegions).Return([]models.StatsResult{
		{Total: 1, InsufficientData: true, Deciles: []float64{}, SnapshotID: store.ID()},
		{Total: 0, InsufficientData: true, Deciles: []float64{}, SnapshotID: store.ID()},
	}, nil).Once()

	snapshots := &MockSnapshotStore{}
	snapshots.On("SaveRegionSnapshots", mock.Anything, mock.MatchedBy(func(s []models.RegionSnapshot) bool {
		return len(s) == 2 &&
			s[0].Region == "mitte" && s[0].Total == 1 &&
			s[1].Region == "altona" && s[1].SnapshotID == store.ID()
	})).Return(nil).Once()
	snapshots.On("PruneRegionSnapshots", mock.Anything, 48).Return(int64(3), nil).Once()

	s := NewScheduler(reloader, stats, snapshots, testRegions, time.Hour, 48, logger)
	err := s.Refresh(context.Background(), JobTypeIngest)
	require.NoError(t, err)

	reloader.AssertExpectations(t)
	stats.AssertExpectations(t)
	snapshots.AssertExpectations(t)
}

func TestScheduler_RefreshFailures(t *testing.T) {
	logger := logrus.New()
	store := listings.NewStore(nil, logger)

	tests := []struct {
		name        string
		reloadErr   error
		statsErr    error
		saveErr     error
		expectSave  bool
		expectPrune bool
		expectError string
	}{
		{
			name:        "Reload failure skips recomputation",
			reloadErr:   models.NewUpstreamError("load listings", errors.New("disk I/O error")),
			expectError: "failed to reload listings",
		},
		{
			name:        "Invalid region aborts",
			statsErr:    models.NewQueryError("radius", "must be positive"),
			expectError: "failed to compute region stats",
		},
		{
			name:        "Save failure",
			saveErr:     errors.New("database is locked"),
			expectSave:  true,
			expectError: "failed to save region snapshots",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reloader := &MockReloader{}
			if tt.reloadErr != nil {
				reloader.On("Reload", mock.Anything).Return(nil, tt.reloadErr)
			} else {
				reloader.On("Reload", mock.Anything).Return(store, nil)
			}

			stats := &MockRegionStats{}
			stats.On("StatsForRegions", mock.Anything).Return([]models.StatsResult{{}, {}}, tt.statsErr)

			snapshots := &MockSnapshotStore{}
			snapshots.On("SaveRegionSnapshots", mock.Anything, mock.Anything).Return(tt.saveErr)

			s := NewScheduler(reloader, stats, snapshots, testRegions, time.Hour, 48, logger)
			err := s.Refresh(context.Background(), JobTypeScheduled)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)

			if tt.reloadErr != nil {
				assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
				stats.AssertNotCalled(t, "StatsForRegions", mock.Anything)
			}
			if !tt.expectSave {
				snapshots.AssertNotCalled(t, "SaveRegionSnapshots", mock.Anything, mock.Anything)
			}
			snapshots.AssertNotCalled(t, "PruneRegionSnapshots", mock.Anything, mock.Anything)
		})
	}
}

func TestScheduler_RefreshWithoutRegions(t *testing.T) {
	logger := logrus.New()
	reloader := &MockReloader{}
	reloader.On("Reload", mock.Anything).Return(listings.NewStore(nil, logger), nil)
	stats := &MockRegionStats{}
	snapshots := &MockSnapshotStore{}

	s := NewScheduler(reloader, stats, snapshots, nil, time.Hour, 48, logger)
	require.NoError(t, s.Refresh(context.Background(), JobTypeStartup))

	stats.AssertNotCalled(t, "StatsForRegions", mock.Anything)
	snapshots.AssertNotCalled(t, "SaveRegionSnapshots", mock.Anything, mock.Anything)
}

func TestScheduler_RequestRefreshCoalesces(t *testing.T) {
	s := NewScheduler(&MockReloader{}, &MockRegionStats{}, &MockSnapshotStore{}, nil, time.Hour, 48, logrus.New())

	s.RequestRefresh(JobTypeIngest)
	s.RequestRefresh(JobTypeIngest)
	s.RequestRefresh(JobTypeIngest)

	assert.Equal(t, 1, len(s.requests))
}

func TestScheduler_StartRunsStartupAndRequestedJobs(t *testing.T) {
	logger := logrus.New()
	reloader := &MockReloader{}
	reloader.On("Reload", mock.Anything).Return(listings.NewStore(nil, logger), nil)

	s := NewScheduler(reloader, &MockRegionStats{}, &MockSnapshotStore{}, nil, time.Hour, 48, logger)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return reloader.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	s.RequestRefresh(JobTypeIngest)
	assert.Eventually(t, func() bool {
		return reloader.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_Ticker(t *testing.T) {
	logger := logrus.New()
	reloader := &MockReloader{}
	reloader.On("Reload", mock.Anything).Return(listings.NewStore(nil, logger), nil)

	s := NewScheduler(reloader, &MockRegionStats{}, &MockSnapshotStore{}, nil, 20*time.Millisecond, 48, logger)
	s.Start()
	defer s.Stop()

	// startup plus at least two ticks
	assert.Eventually(t, func() bool {
		return reloader.calls.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}
