package listings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentstats/server/internal/models"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) LoadListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func intPtr(v int) *int { return &v }

func TestNewStore_DropsUnusableListings(t *testing.T) {
	input := []models.Listing{
		{ExternalID: "ok-1", Latitude: 52.5, Longitude: 13.4, LivingSpace: 50, TotalRent: 700},
		{ExternalID: "no-space", Latitude: 52.5, Longitude: 13.4, LivingSpace: 0, TotalRent: 700},
		{ExternalID: "no-rent", Latitude: 52.5, Longitude: 13.4, LivingSpace: 40, TotalRent: -1},
		{ExternalID: "bad-lat", Latitude: 95, Longitude: 13.4, LivingSpace: 40, TotalRent: 500},
		{ExternalID: "ok-2", Latitude: 52.6, Longitude: 13.3, LivingSpace: 80, TotalRent: 1100, Rooms: intPtr(3)},
	}

	store := NewStore(input, logrus.New())

	require.Equal(t, 2, store.Len())
	assert.Equal(t, "ok-1", store.At(0).ExternalID)
	assert.Equal(t, "ok-2", store.At(1).ExternalID)
	assert.NotEmpty(t, store.ID())
	assert.False(t, store.LoadedAt().IsZero())
}

func TestNewStore_IsIsolatedFromInput(t *testing.T) {
	rooms := 2
	input := []models.Listing{
		{ExternalID: "a", Latitude: 1, Longitude: 1, LivingSpace: 30, TotalRent: 400, Rooms: &rooms},
	}
	store := NewStore(input, nil)

	input[0].TotalRent = 9999
	rooms = 7

	assert.Equal(t, 400.0, store.At(0).TotalRent)
	assert.Equal(t, 2, *store.At(0).Rooms)
}

func TestRegistry_Reload(t *testing.T) {
	source := &MockSource{}
	listings := []models.Listing{
		{ExternalID: "a", Latitude: 1, Longitude: 1, LivingSpace: 30, TotalRent: 400},
		{ExternalID: "b", Latitude: 1, Longitude: 1, LivingSpace: 60, TotalRent: 800},
	}
	source.On("LoadListings", mock.Anything).Return(listings, nil).Once()

	registry := NewRegistry(source, logrus.New())
	initial := registry.Snapshot()
	assert.Equal(t, 0, initial.Len())

	store, err := registry.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Same(t, store, registry.Snapshot())
	assert.NotEqual(t, initial.ID(), store.ID())

	// Snapshots held by earlier readers are untouched by the swap.
	assert.Equal(t, 0, initial.Len())
	source.AssertExpectations(t)
}

func TestRegistry_ReloadFailureKeepsSnapshot(t *testing.T) {
	source := &MockSource{}
	source.On("LoadListings", mock.Anything).Return([]models.Listing{
		{ExternalID: "a", Latitude: 1, Longitude: 1, LivingSpace: 30, TotalRent: 400},
	}, nil).Once()
	source.On("LoadListings", mock.Anything).Return(nil, errors.New("database is locked")).Once()

	registry := NewRegistry(source, logrus.New())
	first, err := registry.Reload(context.Background())
	require.NoError(t, err)

	current, err := registry.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
	assert.Same(t, first, current)
	assert.Same(t, first, registry.Snapshot())
}

func TestRegistry_ReloadWithoutSource(t *testing.T) {
	registry := NewRegistry(nil, nil)
	_, err := registry.Reload(context.Background())
	assert.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
}

func TestRegistry_ConcurrentReadersDuringPublish(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	registry := NewRegistry(nil, logger)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s := registry.Snapshot()
				n := s.Len()
				for k := 0; k < n; k++ {
					_ = s.At(k)
				}
			}
		}()
	}

	for i := 1; i <= 20; i++ {
		batch := make([]models.Listing, i)
		for k := range batch {
			batch[k] = models.Listing{Latitude: 1, Longitude: 1, LivingSpace: 40, TotalRent: 500}
		}
		registry.Publish(batch)
	}
	wg.Wait()

	assert.Equal(t, 20, registry.Snapshot().Len())
}
