package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorProcessedEqualsSuccessfulPlusFailed(t *testing.T) {
	store := newFakeStore()
	batch := models.NewBatch("agg-test", 40)
	aggregator := NewBatchAggregator(batch, store)

	require.NoError(t, aggregator.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				aggregator.RecordFailure(10 * time.Millisecond)
			} else {
				aggregator.RecordSuccess(10 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	stats := aggregator.Snapshot()
	assert.Equal(t, 30, stats.Successful)
	assert.Equal(t, 10, stats.Failed)
	assert.Equal(t, stats.Successful+stats.Failed, stats.Processed)
	assert.Equal(t, int64(10), stats.AverageTimeMs)
}

func TestAggregatorStartTransitionsBatchToRunning(t *testing.T) {
	store := newFakeStore()
	batch := models.NewBatch("agg-test", 5)
	aggregator := NewBatchAggregator(batch, store)

	require.NoError(t, aggregator.Start(context.Background()))

	assert.Equal(t, models.BatchStatusRunning, batch.Status)
	assert.NotNil(t, batch.StartedAt)
	assert.NotNil(t, store.finalizedBatch(batch.ID))
}

func TestAggregatorStartFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.failCreateBatch = true
	batch := models.NewBatch("agg-test", 5)
	aggregator := NewBatchAggregator(batch, store)

	err := aggregator.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch bookkeeping")
}

func TestAggregatorFinalizePersistsCounts(t *testing.T) {
	store := newFakeStore()
	batch := models.NewBatch("agg-test", 3)
	aggregator := NewBatchAggregator(batch, store)

	require.NoError(t, aggregator.Start(context.Background()))
	aggregator.RecordSuccess(5 * time.Millisecond)
	aggregator.RecordSuccess(5 * time.Millisecond)
	aggregator.RecordFailure(5 * time.Millisecond)
	require.NoError(t, aggregator.Finalize(context.Background()))

	persisted := store.finalizedBatch(batch.ID)
	require.NotNil(t, persisted)
	assert.Equal(t, models.BatchStatusCompleted, persisted.Status)
	assert.Equal(t, 2, persisted.SuccessCount)
	assert.Equal(t, 1, persisted.FailureCount)
	assert.NotNil(t, persisted.CompletedAt)
}

func TestAggregatorSnapshotBeforeAnyOutcome(t *testing.T) {
	store := newFakeStore()
	batch := models.NewBatch("agg-test", 7)
	aggregator := NewBatchAggregator(batch, store)

	stats := aggregator.Snapshot()
	assert.Equal(t, 7, stats.TotalRecords)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, int64(0), stats.AverageTimeMs)
	assert.Equal(t, models.BatchStatusCreated, stats.Status)
}
