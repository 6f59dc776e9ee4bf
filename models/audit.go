package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions, one per pipeline step plus the distinct quote retry row.
const (
	AuditActionVehicleLookup   = "vehicle_lookup"
	AuditActionAddressSearch   = "address_search"
	AuditActionAddressValidate = "address_validate"
	AuditActionCreateQuote     = "create_quote"
	AuditActionQuoteRetry      = "create_quote_retry"
	AuditActionPersist         = "persist"
)

// Audit outcome values.
const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuditEntry is one append-only row describing a single step execution for
// one record.
type AuditEntry struct {
	ID              uuid.UUID       `json:"id"`
	BatchID         uuid.UUID       `json:"batch_id"`
	RecordID        int             `json:"record_id"`
	Action          string          `json:"action"`
	Status          string          `json:"status"`
	Endpoint        string          `json:"endpoint"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}
