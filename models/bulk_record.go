package models

import (
	"sync"
	"time"
)

// RecordStatus tracks a record through the processing pipeline.
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusSuccess    RecordStatus = "success"
	RecordStatusError      RecordStatus = "error"
)

// AustralianStates lists the 8 recognized jurisdiction codes.
var AustralianStates = []string{"NSW", "VIC", "QLD", "SA", "WA", "TAS", "NT", "ACT"}

// BulkRecord is one parsed input row. Status and result fields are written
// only by the goroutine processing the record, but may be read concurrently
// by the API layer, so mutation goes through the guarded setters.
type BulkRecord struct {
	mu sync.Mutex

	SequenceID   int    `json:"sequence_id"`
	Registration string `json:"registration"`
	State        string `json:"state"`
	Address      string `json:"address"`
	DateOfBirth  string `json:"date_of_birth"`
	Gender       string `json:"gender"`

	Status       RecordStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`

	Vehicle     *VehicleDetails `json:"vehicle,omitempty"`
	RiskAddress *AddressData    `json:"risk_address,omitempty"`
	Quote       *QuoteData      `json:"quote,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewBulkRecord creates a pending record with a 1-based sequence id.
func NewBulkRecord(sequenceID int, registration, state, address, dob, gender string) *BulkRecord {
	return &BulkRecord{
		SequenceID:   sequenceID,
		Registration: registration,
		State:        state,
		Address:      address,
		DateOfBirth:  dob,
		Gender:       gender,
		Status:       RecordStatusPending,
	}
}

// MarkProcessing transitions pending -> processing and stamps the start time.
// Returns false if the record is not pending.
func (r *BulkRecord) MarkProcessing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != RecordStatusPending {
		return false
	}
	now := time.Now()
	r.Status = RecordStatusProcessing
	r.StartedAt = &now
	return true
}

// MarkSuccess transitions processing -> success and attaches the composed
// results. Returns false if the record is not processing.
func (r *BulkRecord) MarkSuccess(vehicle *VehicleDetails, address *AddressData, quote *QuoteData) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != RecordStatusProcessing {
		return false
	}
	now := time.Now()
	r.Status = RecordStatusSuccess
	r.Vehicle = vehicle
	r.RiskAddress = address
	r.Quote = quote
	r.CompletedAt = &now
	return true
}

// MarkError transitions processing -> error with a human-readable message.
// Returns false if the record is not processing.
func (r *BulkRecord) MarkError(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != RecordStatusProcessing {
		return false
	}
	now := time.Now()
	r.Status = RecordStatusError
	r.ErrorMessage = message
	r.CompletedAt = &now
	return true
}

// CurrentStatus returns the record status under the lock.
func (r *BulkRecord) CurrentStatus() RecordStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status
}

// Elapsed returns the processing duration, or zero if the record has not
// reached a terminal state.
func (r *BulkRecord) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// RecordView is an immutable snapshot of a BulkRecord safe for serialization.
type RecordView struct {
	SequenceID   int             `json:"sequence_id"`
	Registration string          `json:"registration"`
	State        string          `json:"state"`
	Address      string          `json:"address"`
	DateOfBirth  string          `json:"date_of_birth"`
	Gender       string          `json:"gender"`
	Status       RecordStatus    `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Vehicle      *VehicleDetails `json:"vehicle,omitempty"`
	RiskAddress  *AddressData    `json:"risk_address,omitempty"`
	Quote        *QuoteData      `json:"quote,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Snapshot returns a copy of the record state under the lock.
func (r *BulkRecord) Snapshot() RecordView {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RecordView{
		SequenceID:   r.SequenceID,
		Registration: r.Registration,
		State:        r.State,
		Address:      r.Address,
		DateOfBirth:  r.DateOfBirth,
		Gender:       r.Gender,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
		Vehicle:      r.Vehicle,
		RiskAddress:  r.RiskAddress,
		Quote:        r.Quote,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}
