package services

import (
	"context"
	"fmt"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/driveline-au/quote-backend/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Callers see at most this many individual row diagnostics; the rest are
// folded into the summary line.
const maxShownValidationErrors = 10

// SubmitResult is what the operator gets back immediately after submitting
// raw text: the batch id to poll plus the validation outcome.
type SubmitResult struct {
	BatchID          string   `json:"batch_id,omitempty"`
	TotalRecords     int      `json:"total_records"`
	RejectedRows     int      `json:"rejected_rows"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	ErrorSummary     string   `json:"error_summary,omitempty"`
}

// BulkQuoteService is the front door of the pipeline: it parses submissions,
// registers a run and hands it to the scheduler on a background goroutine.
type BulkQuoteService struct {
	parser    *RecordParser
	scheduler *BatchScheduler
	registry  *RunRegistry
	store     Store
}

func NewBulkQuoteService(parser *RecordParser, scheduler *BatchScheduler, registry *RunRegistry, store Store) *BulkQuoteService {
	return &BulkQuoteService{
		parser:    parser,
		scheduler: scheduler,
		registry:  registry,
		store:     store,
	}
}

// SubmitBatch validates the raw text and, if any records survive, starts
// processing them asynchronously. Row-level problems come back in the
// result, not as an error; err is only non-nil when no batch was started.
func (s *BulkQuoteService) SubmitBatch(rawText, batchName string) (*SubmitResult, error) {
	records, parseErrors := s.parser.Parse(rawText)

	result := &SubmitResult{
		TotalRecords: len(records),
		RejectedRows: len(parseErrors),
		ErrorSummary: shared.BuildValidationErrorSummary(parseErrors, maxShownValidationErrors),
	}
	shown := len(parseErrors)
	if shown > maxShownValidationErrors {
		shown = maxShownValidationErrors
	}
	result.ValidationErrors = parseErrors[:shown]

	if len(records) == 0 {
		return result, fmt.Errorf("no valid records in submission")
	}

	if batchName == "" {
		batchName = fmt.Sprintf("bulk-%s", time.Now().Format("20060102-150405"))
	}

	batch := models.NewBatch(batchName, len(records))
	run := &BatchRun{
		Batch:      batch,
		Records:    records,
		Aggregator: NewBatchAggregator(batch, s.store),
		CreatedAt:  time.Now(),
	}
	s.registry.Put(run)
	result.BatchID = batch.ID.String()

	logrus.WithFields(logrus.Fields{
		"component":     "BulkQuoteService",
		"batch_id":      batch.ID,
		"batch_name":    batchName,
		"total_records": len(records),
		"rejected_rows": len(parseErrors),
	}).Info("Batch submitted for processing")

	// Processing is detached from the HTTP request lifetime.
	go func() {
		if err := s.scheduler.ProcessAll(context.Background(), run); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "BulkQuoteService",
				"batch_id":  batch.ID,
			}).Errorf("Batch run aborted: %v", err)
		}
	}()

	return result, nil
}

// GetRun returns the live run for a batch id string, or nil when unknown.
func (s *BulkQuoteService) GetRun(batchID string) *BatchRun {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return nil
	}
	return s.registry.Get(id)
}
