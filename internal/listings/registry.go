package listings

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"rentstats/server/internal/models"
)

var errNoSource = errors.New("no listing source configured")

// Source provides the full listing set a store is built from.
type Source interface {
	LoadListings(ctx context.Context) ([]models.Listing, error)
}

// Registry publishes the current Store. Readers take a snapshot with Snapshot
// and keep using it for the whole query; Reload builds a new Store and swaps
// the published pointer once it is complete.
type Registry struct {
	current  atomic.Pointer[Store]
	source   Source
	logger   *logrus.Logger
	reloadMu sync.Mutex
}

// NewRegistry creates a registry publishing an empty store.
func NewRegistry(source Source, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	r := &Registry{
		source: source,
		logger: logger,
	}
	r.current.Store(NewStore(nil, logger))
	return r
}

// Snapshot returns the currently published store.
func (r *Registry) Snapshot() *Store {
	return r.current.Load()
}

// Publish builds a store from listings and makes it current.
func (r *Registry) Publish(listings []models.Listing) *Store {
	store := NewStore(listings, r.logger)
	r.current.Store(store)

	r.logger.WithFields(logrus.Fields{
		"snapshot_id": store.ID(),
		"listings":    store.Len(),
	}).Info("Published listing store")

	return store
}

// Reload fetches all listings from the source and publishes a new store. On
// failure the previous store stays current and an upstream error is returned.
func (r *Registry) Reload(ctx context.Context) (*Store, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	if r.source == nil {
		return r.Snapshot(), models.NewUpstreamError("load listings", errNoSource)
	}

	items, err := r.source.LoadListings(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to reload listing store, keeping previous snapshot")
		return r.Snapshot(), models.NewUpstreamError("load listings", err)
	}

	return r.Publish(items), nil
}
