package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/sirupsen/logrus"
)

// AggregateStats is a point-in-time view of batch progress for display.
type AggregateStats struct {
	BatchID       string             `json:"batch_id"`
	BatchName     string             `json:"batch_name"`
	Status        models.BatchStatus `json:"status"`
	TotalRecords  int                `json:"total_records"`
	Processed     int                `json:"processed"`
	Successful    int                `json:"successful"`
	Failed        int                `json:"failed"`
	AverageTimeMs int64              `json:"average_time_ms"`
}

// BatchAggregator owns batch lifecycle state and rolls up per-record
// outcomes. Its counters are shared across the concurrent record tasks of a
// chunk, so every update goes through the mutex; processed always equals
// successful + failed.
type BatchAggregator struct {
	mu sync.Mutex

	batch        *models.Batch
	store        Store
	successful   int
	failed       int
	totalElapsed time.Duration
}

func NewBatchAggregator(batch *models.Batch, store Store) *BatchAggregator {
	return &BatchAggregator{
		batch: batch,
		store: store,
	}
}

// Start transitions the batch to running and creates its durable row. A
// failure here aborts the run before any record is processed.
func (a *BatchAggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.batch.Status = models.BatchStatusRunning
	a.batch.StartedAt = &now

	if err := a.store.CreateBatch(ctx, a.batch); err != nil {
		return fmt.Errorf("failed to create batch bookkeeping row: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":      a.batch.ID,
		"batch_name":    a.batch.Name,
		"total_records": a.batch.TotalRecords,
	}).Info("Batch processing started")

	return nil
}

// RecordSuccess counts one successful record completion.
func (a *BatchAggregator) RecordSuccess(elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successful++
	a.totalElapsed += elapsed
}

// RecordFailure counts one failed record completion.
func (a *BatchAggregator) RecordFailure(elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed++
	a.totalElapsed += elapsed
}

// Snapshot returns the current progress counters.
func (a *BatchAggregator) Snapshot() AggregateStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	processed := a.successful + a.failed
	var averageMs int64
	if processed > 0 {
		averageMs = a.totalElapsed.Milliseconds() / int64(processed)
	}

	return AggregateStats{
		BatchID:       a.batch.ID.String(),
		BatchName:     a.batch.Name,
		Status:        a.batch.Status,
		TotalRecords:  a.batch.TotalRecords,
		Processed:     processed,
		Successful:    a.successful,
		Failed:        a.failed,
		AverageTimeMs: averageMs,
	}
}

// Finalize stamps the batch completed with its final counts and persists the
// summary row.
func (a *BatchAggregator) Finalize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.batch.Status = models.BatchStatusCompleted
	a.batch.CompletedAt = &now
	a.batch.SuccessCount = a.successful
	a.batch.FailureCount = a.failed

	if err := a.store.FinalizeBatch(ctx, a.batch); err != nil {
		logrus.WithFields(logrus.Fields{
			"batch_id": a.batch.ID,
		}).Errorf("Failed to finalize batch row: %v", err)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":      a.batch.ID,
		"total_records": a.batch.TotalRecords,
		"successful":    a.successful,
		"failed":        a.failed,
		"success_rate":  float64(a.successful) / float64(max(a.batch.TotalRecords, 1)) * 100,
	}).Infof("Batch completed: %d successful, %d failed out of %d",
		a.successful, a.failed, a.batch.TotalRecords)

	return nil
}

// Batch returns the underlying batch.
func (a *BatchAggregator) Batch() *models.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch
}

// CompletedBefore reports whether the batch reached its terminal state
// before the cutoff. Lifecycle fields are written under this mutex, so
// eviction must read them through here rather than off the batch directly.
func (a *BatchAggregator) CompletedBefore(cutoff time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch.Status == models.BatchStatusCompleted &&
		a.batch.CompletedAt != nil &&
		a.batch.CompletedAt.Before(cutoff)
}
