package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("benchmark run not found")

// RunRepository handles benchmark run database operations
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create adds a new run record
func (r *RunRepository) Create(run *BenchmarkRun) error {
	return r.db.Create(run).Error
}

// GetRecent retrieves the most recent N runs
func (r *RunRepository) GetRecent(limit int) ([]BenchmarkRun, error) {
	var runs []BenchmarkRun
	err := r.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRecentPaginated retrieves runs with pagination
func (r *RunRepository) GetRecentPaginated(page, perPage int) ([]BenchmarkRun, int64, error) {
	var runs []BenchmarkRun
	var total int64

	if err := r.db.Model(&BenchmarkRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := r.db.Order("started_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&runs).Error

	return runs, total, err
}

// GetByRunID retrieves a single run
func (r *RunRepository) GetByRunID(runID string) (*BenchmarkRun, error) {
	var run BenchmarkRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByAlgorithm retrieves runs decoded with the given algorithm
func (r *RunRepository) GetByAlgorithm(algorithm string, limit int) ([]BenchmarkRun, error) {
	var runs []BenchmarkRun
	err := r.db.Where("algorithm = ?", algorithm).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// GetByBlockSize retrieves runs for a block size, lowest Eb/N0 first with noiseless runs last
func (r *RunRepository) GetByBlockSize(blockSize int, limit int) ([]BenchmarkRun, error) {
	var runs []BenchmarkRun
	err := r.db.Where("block_size = ?", blockSize).
		Order("ebn0_db IS NULL, ebn0_db ASC, started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// DeleteOlderThan deletes runs that started before the specified time
func (r *RunRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&BenchmarkRun{})
	return result.RowsAffected, result.Error
}
