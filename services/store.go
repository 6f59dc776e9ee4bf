package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driveline-au/quote-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the persistence boundary for the pipeline: one durable row per
// successfully processed record, append-only step audit rows and a summary
// row per batch. Tests supply deterministic fakes.
type Store interface {
	CreateBatch(ctx context.Context, batch *models.Batch) error
	FinalizeBatch(ctx context.Context, batch *models.Batch) error
	InsertQuoteResult(ctx context.Context, batchID uuid.UUID, record *models.BulkRecord, vehicle *models.VehicleDetails, address *models.AddressData, quote *models.QuoteData) error
	AppendAuditLog(ctx context.Context, entry *models.AuditEntry) error
}

// PostgresStore implements Store against the quote_results, audit_log and
// batches tables.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	query := `INSERT INTO batches (id, name, total_records, success_count, failure_count, status, created_at, started_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.DB.ExecContext(ctx, query,
		batch.ID, batch.Name, batch.TotalRecords, batch.SuccessCount, batch.FailureCount,
		batch.Status, batch.CreatedAt, batch.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch row: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":      batch.ID,
		"batch_name":    batch.Name,
		"total_records": batch.TotalRecords,
	}).Info("Batch row created")

	return nil
}

func (s *PostgresStore) FinalizeBatch(ctx context.Context, batch *models.Batch) error {
	query := `UPDATE batches SET success_count = $2, failure_count = $3, status = $4, completed_at = $5
              WHERE id = $1`

	_, err := s.DB.ExecContext(ctx, query,
		batch.ID, batch.SuccessCount, batch.FailureCount, batch.Status, batch.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize batch row: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":      batch.ID,
		"success_count": batch.SuccessCount,
		"failure_count": batch.FailureCount,
	}).Info("Batch row finalized")

	return nil
}

func (s *PostgresStore) InsertQuoteResult(ctx context.Context, batchID uuid.UUID, record *models.BulkRecord, vehicle *models.VehicleDetails, address *models.AddressData, quote *models.QuoteData) error {
	query := `INSERT INTO quote_results (
              batch_id, record_id, registration, state, date_of_birth, gender,
              nvic, vehicle_year, vehicle_make, vehicle_family, vehicle_variant,
              body_style, transmission, drive_type, engine_size, market_value,
              address_id, full_address, suburb, postcode, quality_level, latitude, longitude,
              quote_number, base_premium, stamp_duty, gst, total_premium
          ) VALUES (
              $1, $2, $3, $4, $5, $6,
              $7, $8, $9, $10, $11,
              $12, $13, $14, $15, $16,
              $17, $18, $19, $20, $21, $22, $23,
              $24, $25, $26, $27, $28
          )`

	_, err := s.DB.ExecContext(ctx, query,
		batchID, record.SequenceID, record.Registration, record.State, record.DateOfBirth, record.Gender,
		vehicle.NVIC, vehicle.Year, vehicle.Make, vehicle.Family, vehicle.Variant,
		vehicle.BodyStyle, vehicle.Transmission, vehicle.DriveType, vehicle.EngineSize, vehicle.MarketValue,
		address.AddressID, address.FullAddress, address.Suburb, address.Postcode, address.QualityLevel,
		address.Latitude, address.Longitude,
		quote.QuoteNumber, quote.BasePremium, quote.StampDuty, quote.GST, quote.TotalPremium,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote result: %w", err)
	}

	return nil
}

func (s *PostgresStore) AppendAuditLog(ctx context.Context, entry *models.AuditEntry) error {
	query := `INSERT INTO audit_log (
              id, batch_id, record_id, action, status, endpoint,
              request_payload, response_payload, error_message, elapsed_ms, created_at
          ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	requestPayload := entry.RequestPayload
	if len(requestPayload) == 0 {
		requestPayload = []byte("{}")
	}

	_, err := s.DB.ExecContext(ctx, query,
		entry.ID, entry.BatchID, entry.RecordID, entry.Action, entry.Status, entry.Endpoint,
		[]byte(requestPayload), []byte(entry.ResponsePayload), entry.ErrorMessage, entry.ElapsedMs, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit log row: %w", err)
	}

	return nil
}
