package services

import (
	"sync"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BatchRun bundles everything the API layer needs to observe one batch while
// it processes: the batch, its records and the aggregator.
type BatchRun struct {
	Batch      *models.Batch
	Records    []*models.BulkRecord
	Aggregator *BatchAggregator
	CreatedAt  time.Time
}

// RunRegistry is a concurrent-safe map of active and recently finished batch
// runs keyed by batch id.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*BatchRun
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{
		runs: make(map[uuid.UUID]*BatchRun),
	}
}

// Put registers a run.
func (r *RunRegistry) Put(run *BatchRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.Batch.ID] = run
}

// Get returns the run for a batch id, or nil.
func (r *RunRegistry) Get(batchID uuid.UUID) *BatchRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs[batchID]
}

// Count returns the number of registered runs.
func (r *RunRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// EvictFinished removes completed runs older than the retention window and
// returns the ids it evicted.
func (r *RunRegistry) EvictFinished(retention time.Duration) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	var evicted []uuid.UUID

	for id, run := range r.runs {
		// Lifecycle fields are written under the aggregator's mutex while a
		// run finishes, so terminal state is read through it.
		if run.Aggregator.CompletedBefore(cutoff) {
			delete(r.runs, id)
			evicted = append(evicted, id)
		}
	}

	if len(evicted) > 0 {
		logrus.WithFields(logrus.Fields{
			"component":      "RunRegistry",
			"evicted_count":  len(evicted),
			"remaining_runs": len(r.runs),
		}).Info("Evicted finished batch runs")
	}

	return evicted
}
