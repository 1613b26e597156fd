package processor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentstats/server/config"
	"rentstats/server/internal/database"
	"rentstats/server/internal/models"
	"rentstats/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor persists listing batches taken from the ingestion queue
type BatchProcessor struct {
	db          Transactor
	logger      *logrus.Logger
	config      *config.Config
	queue       *queue.ListingQueue
	onCommitted func(count int)
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.ListingQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnCommitted registers a callback that runs after every committed batch.
// It must be set before Start.
func (p *BatchProcessor) OnCommitted(fn func(count int)) {
	p.onCommitted = fn
}

// Start subscribes the processor to the queue and starts the queue
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start()
}

// Stop aborts pending retries. Batches still queued are handled by the
// queue's Close.
func (p *BatchProcessor) Stop() {
	p.cancel()
}

// processBatch stores a single batch with transaction and retry logic
func (p *BatchProcessor) processBatch(batch []*models.Listing) error {
	maxRetries := p.config.BatchProcessing.MaxRetries
	retryDelay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"attempt":     attempt,
				"max_retries": maxRetries,
			}).Info("Retrying batch processing")

			select {
			case <-p.ctx.Done():
				return fmt.Errorf("batch processing stopped: %w", err)
			case <-time.After(retryDelay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertListings(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert listings batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithField("batch_size", len(batch)).Info("Successfully processed listing batch")
			if p.onCommitted != nil {
				p.onCommitted(len(batch))
			}
			return nil
		}

		p.logger.WithError(err).Error("Batch processing failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}
