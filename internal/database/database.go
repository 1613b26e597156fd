package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"rentstats/server/internal/models"
)

// listingUpdateColumns are overwritten when an ingested listing already exists.
// id and created_at are kept so store order stays the original insertion order.
var listingUpdateColumns = []string{
	"latitude",
	"longitude",
	"living_space",
	"total_rent",
	"rooms",
	"neighborhood",
	"observed_at",
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewTestDB opens a private in-memory database.
func NewTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Every new connection would get its own empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Wrap returns a Database using an already opened connection.
func Wrap(db *gorm.DB) *Database {
	return &Database{db: db}
}

// MigrateSchema creates or updates the listings and region snapshot tables.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Listing{}, &models.RegionSnapshot{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertListings inserts a batch of listings inside tx, updating listings
// whose external id already exists.
func UpsertListings(tx *gorm.DB, batch []*models.Listing) error {
	if len(batch) == 0 {
		return nil
	}

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(listingUpdateColumns),
	}).Create(batch)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert listings: %w", result.Error)
	}
	return nil
}

// InsertListings upserts listings in a single transaction.
func (d *Database) InsertListings(ctx context.Context, batch []*models.Listing) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return UpsertListings(tx, batch)
	})
}

// LoadListings returns every listing in insertion order.
func (d *Database) LoadListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if err := d.db.WithContext(ctx).Order("id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return listings, nil
}

// CountListings returns the number of stored listings.
func (d *Database) CountListings(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.Listing{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

// SaveRegionSnapshots stores one round of precomputed region stats.
func (d *Database) SaveRegionSnapshots(ctx context.Context, snapshots []models.RegionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&snapshots).Error; err != nil {
			return fmt.Errorf("failed to save region snapshots: %w", err)
		}
		return nil
	})
}

// LatestRegionSnapshots returns the most recent snapshot of every region,
// ordered by region name.
func (d *Database) LatestRegionSnapshots(ctx context.Context) ([]models.RegionSnapshot, error) {
	latest := d.db.Model(&models.RegionSnapshot{}).Select("MAX(id)").Group("region")

	var snapshots []models.RegionSnapshot
	err := d.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Order("region ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query latest region snapshots: %w", err)
	}
	return snapshots, nil
}

// RegionHistory returns up to limit snapshots of a region, newest first.
func (d *Database) RegionHistory(ctx context.Context, region string, limit int) ([]models.RegionSnapshot, error) {
	var snapshots []models.RegionSnapshot
	err := d.db.WithContext(ctx).
		Where("region = ?", region).
		Order("id DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query region history: %w", err)
	}
	return snapshots, nil
}

// PruneRegionSnapshots keeps the newest keep snapshots of every region and
// deletes the rest.
func (d *Database) PruneRegionSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("keep must be positive, got %d", keep)
	}

	result := d.db.WithContext(ctx).Exec(`
		DELETE FROM region_snapshots
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY region ORDER BY id DESC) AS rn
				FROM region_snapshots
			) WHERE rn <= ?
		)
	`, keep)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune region snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
