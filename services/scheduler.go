package services

import (
	"context"
	"sync"

	"github.com/driveline-au/quote-backend/config"
	"github.com/driveline-au/quote-backend/models"
	"github.com/driveline-au/quote-backend/shared"
	"github.com/sirupsen/logrus"
)

// BatchScheduler partitions a batch into fixed-size chunks, fans each chunk
// out across goroutines, waits for the whole chunk to finish and pauses
// between chunks. Peak concurrency is bounded by the chunk size; there is no
// steady-state worker pool and no mid-chunk cancellation.
type BatchScheduler struct {
	processor *RecordProcessor
	cfg       *config.BatchConfig
	pacer     *shared.ChunkPacer
}

func NewBatchScheduler(processor *RecordProcessor, cfg *config.BatchConfig) *BatchScheduler {
	return &BatchScheduler{
		processor: processor,
		cfg:       cfg,
		pacer:     shared.NewChunkPacer(cfg.InterBatchDelay),
	}
}

// PauseCount returns the number of inter-chunk pacing delays taken so far.
func (s *BatchScheduler) PauseCount() int64 {
	return s.pacer.GetPauseCount()
}

// ProcessAll runs every record of the batch to a terminal state and
// finalizes the batch. Only a failure to create the batch bookkeeping row
// aborts the run; individual record failures never do.
func (s *BatchScheduler) ProcessAll(ctx context.Context, run *BatchRun) error {
	if err := run.Aggregator.Start(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "BatchScheduler",
			"batch_id":  run.Batch.ID,
		}).Errorf("Aborting run before any record: %v", err)
		return err
	}

	records := run.Records
	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	totalChunks := (len(records) + chunkSize - 1) / chunkSize

	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		chunkNumber := start/chunkSize + 1

		// Pacing goes between chunks, never before the first or after
		// the last.
		if start > 0 {
			s.pacer.Pause()
		}

		logrus.WithFields(logrus.Fields{
			"component":    "BatchScheduler",
			"batch_id":     run.Batch.ID,
			"chunk":        chunkNumber,
			"total_chunks": totalChunks,
			"chunk_size":   len(chunk),
		}).Infof("Processing chunk %d/%d (%d records)", chunkNumber, totalChunks, len(chunk))

		var wg sync.WaitGroup
		for _, record := range chunk {
			wg.Add(1)
			go func(rec *models.BulkRecord) {
				defer wg.Done()
				s.processor.Process(ctx, run, rec)
			}(record)
		}
		wg.Wait()
	}

	return run.Aggregator.Finalize(ctx)
}
