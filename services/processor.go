package services

import (
	"context"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/sirupsen/logrus"
)

// RecordProcessor drives one record through the four-step workflow:
// vehicle lookup, address validation, quote creation and persistence. Every
// step failure is caught and converted into the record's terminal error
// status; nothing propagates out of Process, so one bad record never takes
// down its chunk or batch.
type RecordProcessor struct {
	client RemoteQuoteService
	store  Store
	audit  *AuditLogger
}

func NewRecordProcessor(client RemoteQuoteService, store Store, audit *AuditLogger) *RecordProcessor {
	return &RecordProcessor{
		client: client,
		store:  store,
		audit:  audit,
	}
}

// Process runs the state machine for a single record. The record is owned by
// this call: no other goroutine writes it while Process runs.
func (p *RecordProcessor) Process(ctx context.Context, run *BatchRun, record *models.BulkRecord) {
	batch := run.Batch
	session := p.audit.SessionFor(batch.ID)
	ref := CallRef{BatchID: batch.ID, RecordID: record.SequenceID}

	if !record.MarkProcessing() {
		logrus.WithFields(logrus.Fields{
			"component": "RecordProcessor",
			"batch_id":  batch.ID,
			"record_id": record.SequenceID,
			"status":    record.CurrentStatus(),
		}).Warn("Skipping record not in pending state")
		return
	}

	session.Appendf("record %d: processing started (registration %s, state %s)",
		record.SequenceID, record.Registration, record.State)

	// Step 1: vehicle lookup
	vehicle, err := p.client.VehicleLookup(ctx, ref, record.Registration, record.State)
	if err != nil {
		p.fail(run, record, err)
		return
	}
	session.Appendf("record %d: vehicle resolved to %s %d (nvic %s)",
		record.SequenceID, vehicle.Description(), vehicle.Year, vehicle.NVIC)

	// Step 2: address validation (search + validate sub-protocol)
	address, err := p.client.ValidateAddress(ctx, ref, record.Address)
	if err != nil {
		p.fail(run, record, err)
		return
	}
	session.Appendf("record %d: address validated as %q (quality %d)",
		record.SequenceID, address.FullAddress, address.QualityLevel)

	// Step 3: quote creation (single internal retry lives in the client)
	quote, err := p.client.CreateQuote(ctx, ref, QuoteRequest{
		Vehicle:     vehicle,
		Address:     address,
		DateOfBirth: record.DateOfBirth,
		Gender:      record.Gender,
		State:       record.State,
	})
	if err != nil {
		p.fail(run, record, err)
		return
	}
	session.Appendf("record %d: quote %s generated (total premium %.2f)",
		record.SequenceID, quote.QuoteNumber, quote.TotalPremium)

	// Step 4: persistence. Not separately retried; a failure here is the
	// record's error even though the upstream steps succeeded.
	persistStart := time.Now()
	persistErr := p.store.InsertQuoteResult(ctx, batch.ID, record, vehicle, address, quote)
	persistElapsed := time.Since(persistStart)

	p.auditPersist(ctx, ref, persistErr, persistElapsed)

	if persistErr != nil {
		p.fail(run, record, persistErr)
		return
	}

	if !record.MarkSuccess(vehicle, address, quote) {
		logrus.WithFields(logrus.Fields{
			"component": "RecordProcessor",
			"batch_id":  batch.ID,
			"record_id": record.SequenceID,
		}).Warn("Record refused success transition")
		return
	}
	run.Aggregator.RecordSuccess(record.Elapsed())

	session.Appendf("record %d: completed successfully in %dms",
		record.SequenceID, record.Elapsed().Milliseconds())
}

// fail converts a step error into the record's terminal error state and
// counts the failure.
func (p *RecordProcessor) fail(run *BatchRun, record *models.BulkRecord, err error) {
	message := errorMessage(err)

	if !record.MarkError(message) {
		logrus.WithFields(logrus.Fields{
			"component": "RecordProcessor",
			"batch_id":  run.Batch.ID,
			"record_id": record.SequenceID,
		}).Warn("Record refused error transition")
		return
	}
	run.Aggregator.RecordFailure(record.Elapsed())

	p.audit.SessionFor(run.Batch.ID).Appendf("record %d: failed after %dms: %s",
		record.SequenceID, record.Elapsed().Milliseconds(), message)

	logrus.WithFields(logrus.Fields{
		"component":  "RecordProcessor",
		"batch_id":   run.Batch.ID,
		"record_id":  record.SequenceID,
		"elapsed_ms": record.Elapsed().Milliseconds(),
	}).Warnf("Record failed: %s", message)
}

// auditPersist writes the audit row for the persistence step. Remote steps
// are audited inside the client; persistence is the processor's own step.
func (p *RecordProcessor) auditPersist(ctx context.Context, ref CallRef, persistErr error, elapsed time.Duration) {
	entry := &models.AuditEntry{
		BatchID:   ref.BatchID,
		RecordID:  ref.RecordID,
		Action:    models.AuditActionPersist,
		Status:    models.AuditStatusSuccess,
		Endpoint:  "quote_results",
		ElapsedMs: elapsed.Milliseconds(),
	}
	if persistErr != nil {
		entry.Status = models.AuditStatusFailure
		message := persistErr.Error()
		entry.ErrorMessage = &message
	}
	p.audit.Log(ctx, entry)
}
