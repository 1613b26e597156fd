package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentstats/server/internal/listings"
	"rentstats/server/internal/models"
)

// JobType represents the reason a refresh job runs
type JobType int

const (
	JobTypeStartup JobType = iota
	JobTypeScheduled
	JobTypeIngest
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeStartup:
		return "startup"
	case JobTypeScheduled:
		return "scheduled"
	case JobTypeIngest:
		return "ingest"
	default:
		return "unknown"
	}
}

// Reloader rebuilds and publishes the listing store
type Reloader interface {
	Reload(ctx context.Context) (*listings.Store, error)
}

// RegionStats computes the configured regions against one snapshot
type RegionStats interface {
	StatsForRegions(regions []models.Region) ([]models.StatsResult, error)
}

// SnapshotStore persists computed region snapshots
type SnapshotStore interface {
	SaveRegionSnapshots(ctx context.Context, snapshots []models.RegionSnapshot) error
	PruneRegionSnapshots(ctx context.Context, keep int) (int64, error)
}

// Scheduler reloads the listing store and recomputes region snapshots on a
// fixed interval and whenever a refresh is requested.
type Scheduler struct {
	reloader    Reloader
	stats       RegionStats
	snapshots   SnapshotStore
	regions     []models.Region
	interval    time.Duration
	historySize int
	logger      *logrus.Logger

	requests chan JobType
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	now      func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(reloader Reloader, stats RegionStats, snapshots SnapshotStore, regions []models.Region, interval time.Duration, historySize int, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		reloader:    reloader,
		stats:       stats,
		snapshots:   snapshots,
		regions:     regions,
		interval:    interval,
		historySize: historySize,
		logger:      logger,
		requests:    make(chan JobType, 1),
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Start runs a startup refresh and then begins the scheduled tasks
func (s *Scheduler) Start() {
	s.RequestRefresh(JobTypeStartup)
	s.wg.Add(1)
	go s.runScheduler()
}

// RequestRefresh asks for a refresh without blocking. Requests made while
// one is already pending are merged into it.
func (s *Scheduler) RequestRefresh(reason JobType) {
	select {
	case s.requests <- reason:
	default:
		s.logger.WithField("job_type", reason.String()).Debug("Refresh already pending")
	}
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runJob(JobTypeScheduled)
		case reason := <-s.requests:
			s.runJob(reason)
		}
	}
}

func (s *Scheduler) runJob(jobType JobType) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Refresh(ctx, jobType); err != nil {
		s.logger.WithError(err).WithField("job_type", jobType.String()).Error("Refresh job failed")
	}
}

// Refresh reloads the store, computes all regions against the new snapshot
// and persists the results. A failed reload keeps the previous store and
// skips the recomputation.
func (s *Scheduler) Refresh(ctx context.Context, jobType JobType) error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	start := s.now()
	fields := logrus.Fields{"job_type": jobType.String()}
	s.logger.WithFields(fields).Info("Starting refresh job")

	store, err := s.reloader.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload listings: %w", err)
	}
	fields["snapshot_id"] = store.ID()
	fields["listings"] = store.Len()

	if len(s.regions) == 0 {
		s.logger.WithFields(fields).Info("Refresh job completed without regions")
		return nil
	}

	results, err := s.stats.StatsForRegions(s.regions)
	if err != nil {
		return fmt.Errorf("failed to compute region stats: %w", err)
	}

	computedAt := s.now()
	snapshots := make([]models.RegionSnapshot, len(results))
	for i, result := range results {
		snapshots[i] = models.NewRegionSnapshot(s.regions[i], result, computedAt)
	}

	if err := s.snapshots.SaveRegionSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to save region snapshots: %w", err)
	}

	if s.historySize > 0 {
		pruned, err := s.snapshots.PruneRegionSnapshots(ctx, s.historySize)
		if err != nil {
			s.logger.WithError(err).WithFields(fields).Warn("Failed to prune region snapshots")
		} else {
			fields["pruned"] = pruned
		}
	}

	fields["regions"] = len(snapshots)
	fields["duration_ms"] = s.now().Sub(start).Milliseconds()
	s.logger.WithFields(fields).Info("Refresh job completed successfully")
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
