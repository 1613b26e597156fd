package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentstats/server/internal/models"
)

func TestNewListingQueue(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.Cap())
	assert.False(t, q.IsClosed())
}

func TestListingQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(2, logger)

	// Test successful push
	listings := []*models.Listing{{ExternalID: "test1"}}
	err := q.Push(listings)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	require.NoError(t, q.Push([]*models.Listing{{ExternalID: "test2"}}))
	err = q.Push(listings)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	// Test closed queue
	require.NoError(t, q.Close())
	err = q.Push(listings)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestListingQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)

	var processed []*models.Listing
	var mu sync.Mutex

	q.Subscribe(func(listings []*models.Listing) error {
		mu.Lock()
		processed = append(processed, listings...)
		mu.Unlock()
		return nil
	})

	q.Start()

	err := q.Push([]*models.Listing{{ExternalID: "test1"}, {ExternalID: "test2"}})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "test1", processed[0].ExternalID)
	assert.Equal(t, "test2", processed[1].ExternalID)
	mu.Unlock()
}

func TestListingQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)

	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Second close is a no-op
	err = q.Close()
	assert.NoError(t, err)
}

func TestListingQueue_CloseDrainsPendingBatches(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)

	var mu sync.Mutex
	handled := 0
	q.Subscribe(func(listings []*models.Listing) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		handled += len(listings)
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push([]*models.Listing{{ExternalID: "x"}}))
	}
	q.Start()
	require.NoError(t, q.Close())

	mu.Lock()
	assert.Equal(t, 5, handled)
	mu.Unlock()
}

func TestListingQueue_ProcessBatch(t *testing.T) {
	logger := logrus.New()
	q := NewListingQueue(10, logger)

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	// A failing handler must not stop the others
	for i := 0; i < 3; i++ {
		wg.Add(1)
		fail := i == 0
		q.Subscribe(func(listings []*models.Listing) error {
			defer wg.Done()
			mu.Lock()
			processedBatches++
			mu.Unlock()
			if fail {
				return errors.New("handler failed")
			}
			return nil
		})
	}

	q.Start()
	q.Start()

	err := q.Push([]*models.Listing{{ExternalID: "test"}})
	assert.NoError(t, err)

	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
