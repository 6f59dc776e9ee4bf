package services

import (
	"context"
	"sync"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for deterministic pipeline tests.
type fakeStore struct {
	mu sync.Mutex

	batches      map[uuid.UUID]*models.Batch
	resultCount  int
	auditEntries []models.AuditEntry

	failCreateBatch bool
	failInsert      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		batches: make(map[uuid.UUID]*models.Batch),
	}
}

func (s *fakeStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateBatch {
		return errCreateBatch
	}
	copied := *batch
	s.batches[batch.ID] = &copied
	return nil
}

func (s *fakeStore) FinalizeBatch(ctx context.Context, batch *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *batch
	s.batches[batch.ID] = &copied
	return nil
}

func (s *fakeStore) InsertQuoteResult(ctx context.Context, batchID uuid.UUID, record *models.BulkRecord, vehicle *models.VehicleDetails, address *models.AddressData, quote *models.QuoteData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errInsertResult
	}
	s.resultCount++
	return nil
}

func (s *fakeStore) AppendAuditLog(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEntries = append(s.auditEntries, *entry)
	return nil
}

func (s *fakeStore) auditActions(recordID int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []string
	for _, entry := range s.auditEntries {
		if entry.RecordID == recordID {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

func (s *fakeStore) insertedResults() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultCount
}

func (s *fakeStore) finalizedBatch(batchID uuid.UUID) *models.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[batchID]
}

var (
	errCreateBatch  = &testError{"batch row insert refused"}
	errInsertResult = &testError{"quote result insert refused"}
)

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

// fakeQuoteService returns canned results per capability and tracks the
// number of concurrently executing calls so scheduler tests can assert the
// fan-out bound.
type fakeQuoteService struct {
	mu sync.Mutex

	lookupErr  error
	addressErr error
	quoteErr   error

	vehicle *models.VehicleDetails
	address *models.AddressData
	quote   *models.QuoteData

	callDelay time.Duration

	inFlight     int
	maxInFlight  int
	lookupCalls  int
	addressCalls int
	quoteCalls   int
}

func newFakeQuoteService() *fakeQuoteService {
	return &fakeQuoteService{
		vehicle: &models.VehicleDetails{
			NVIC: "ABC12X", Year: 2019, Make: "Toyota", Family: "Corolla",
			Variant: "Ascent Sport", BodyStyle: "Hatchback", Transmission: "Automatic",
			DriveType: "FWD", EngineSize: "2.0L", MarketValue: 21500,
		},
		address: &models.AddressData{
			AddressID: "A-1", FullAddress: "123 Main Street, Brisbane QLD 4000",
			StreetNumber: "123", StreetName: "Main", StreetType: "Street",
			Suburb: "Brisbane", State: "QLD", Postcode: "4000", QualityLevel: 1,
		},
		quote: &models.QuoteData{
			QuoteNumber: "Q-1001", BasePremium: 412.50, StampDuty: 41.25,
			GST: 41.25, TotalPremium: 495.00,
		},
	}
}

func (f *fakeQuoteService) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
}

func (f *fakeQuoteService) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeQuoteService) VehicleLookup(ctx context.Context, ref CallRef, registration, state string) (*models.VehicleDetails, error) {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.lookupCalls++
	f.mu.Unlock()
	if f.callDelay > 0 {
		time.Sleep(f.callDelay)
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	vehicle := *f.vehicle
	return &vehicle, nil
}

func (f *fakeQuoteService) ValidateAddress(ctx context.Context, ref CallRef, freeText string) (*models.AddressData, error) {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.addressCalls++
	f.mu.Unlock()
	if f.addressErr != nil {
		return nil, f.addressErr
	}
	address := *f.address
	return &address, nil
}

func (f *fakeQuoteService) CreateQuote(ctx context.Context, ref CallRef, req QuoteRequest) (*models.QuoteData, error) {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	quote := *f.quote
	return &quote, nil
}

func (f *fakeQuoteService) observedMaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// newTestRun builds a run over the given records with a fake store.
func newTestRun(store *fakeStore, records []*models.BulkRecord) *BatchRun {
	batch := models.NewBatch("test-batch", len(records))
	return &BatchRun{
		Batch:      batch,
		Records:    records,
		Aggregator: NewBatchAggregator(batch, store),
	}
}

// makeRecords builds n pending records with sequential ids.
func makeRecords(n int) []*models.BulkRecord {
	records := make([]*models.BulkRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, models.NewBulkRecord(
			i, "ABC123", "QLD", "123 Main Street, Brisbane QLD 4000", "15/03/1985", "Male",
		))
	}
	return records
}
