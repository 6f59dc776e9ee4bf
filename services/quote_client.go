package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/driveline-au/quote-backend/config"
	"github.com/driveline-au/quote-backend/models"
	"github.com/driveline-au/quote-backend/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Vendor compatibility rule: the purchase-intent flag is only understood by
// the remote service for vehicles at most this many model years old.
const purchaseIntentMaxVehicleAge = 3

// CallRef ties a remote call back to the record it is made for, so the
// client can audit every call against the right batch and record.
type CallRef struct {
	BatchID  uuid.UUID
	RecordID int
}

// QuoteRequest carries everything the underwriting payload is composed from.
type QuoteRequest struct {
	Vehicle     *models.VehicleDetails
	Address     *models.AddressData
	DateOfBirth string
	Gender      string
	State       string
}

// RemoteQuoteService is the capability boundary to the external underwriting
// service: vehicle lookup, address validation (a search + validate
// sub-protocol) and quote creation. Implementations classify expected remote
// failures into shared.ServiceError values; only transport plumbing surfaces
// as plain errors.
type RemoteQuoteService interface {
	VehicleLookup(ctx context.Context, ref CallRef, registration, state string) (*models.VehicleDetails, error)
	ValidateAddress(ctx context.Context, ref CallRef, freeText string) (*models.AddressData, error)
	CreateQuote(ctx context.Context, ref CallRef, req QuoteRequest) (*models.QuoteData, error)
}

// UnderwritingClient is the HTTP/JSON implementation of RemoteQuoteService.
type UnderwritingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	audit      *AuditLogger

	LookupMetrics  *shared.ServiceMetrics
	AddressMetrics *shared.ServiceMetrics
	QuoteMetrics   *shared.ServiceMetrics
}

func NewUnderwritingClient(cfg *config.ServiceConfig, audit *AuditLogger) *UnderwritingClient {
	factory := shared.NewHTTPClientFactory(cfg.HTTPRequestTimeout)

	return &UnderwritingClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		httpClient:     factory.CreateOptimizedHTTPClient(cfg.HTTPRequestTimeout),
		audit:          audit,
		LookupMetrics:  shared.NewServiceMetrics("vehicle_lookup"),
		AddressMetrics: shared.NewServiceMetrics("address_validation"),
		QuoteMetrics:   shared.NewServiceMetrics("quote_creation"),
	}
}

// Wire types for the underwriting service endpoints.

type vehicleLookupRequest struct {
	Registration string `json:"registration"`
	State        string `json:"state"`
}

type vehicleLookupResponse struct {
	Vehicle *models.VehicleDetails `json:"vehicle"`
}

type addressSearchRequest struct {
	Query string `json:"query"`
}

type addressSearchResponse struct {
	Suggestions []models.AddressSuggestion `json:"suggestions"`
}

type addressValidateRequest struct {
	SuggestionID string `json:"suggestion_id"`
}

type addressValidateResponse struct {
	Address *models.AddressData `json:"address"`
}

type quoteDriver struct {
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

type createQuoteRequest struct {
	CoverType      string       `json:"cover_type"`
	NVIC           string       `json:"nvic"`
	VehicleYear    int          `json:"vehicle_year"`
	SumInsured     float64      `json:"sum_insured"`
	RiskAddressID  string       `json:"risk_address_id"`
	State          string       `json:"state"`
	Driver         quoteDriver  `json:"driver"`
	PurchaseIntent *bool        `json:"purchase_intent,omitempty"`
}

type createQuoteResponse struct {
	Quote *models.QuoteData `json:"quote"`
}

type remoteErrorEnvelope struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// VehicleLookup resolves a registration + state pair to vehicle details.
func (c *UnderwritingClient) VehicleLookup(ctx context.Context, ref CallRef, registration, state string) (*models.VehicleDetails, error) {
	endpoint := "/v1/vehicles/lookup"
	payload := vehicleLookupRequest{Registration: registration, State: state}

	var response vehicleLookupResponse
	responseBody, elapsed, err := c.doPost(ctx, endpoint, payload, &response)

	if err == nil && response.Vehicle == nil {
		err = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeLookupFailed,
			fmt.Sprintf("no vehicle found for registration %s in %s", registration, state),
			"underwriting-client", "VehicleLookup", false, nil,
		)
	}
	if err != nil {
		err = c.asStepError(err, shared.CodeLookupFailed, "VehicleLookup")
	}

	c.auditCall(ctx, ref, models.AuditActionVehicleLookup, endpoint, payload, responseBody, err, elapsed)
	c.LookupMetrics.RecordRequest(err == nil, elapsed)

	if err != nil {
		return nil, err
	}
	return response.Vehicle, nil
}

// ValidateAddress runs the two-call sub-protocol: free-text search for ranked
// candidates, then validation of the top candidate into a canonical, geocoded
// address with a quality score. Quality levels 1-3 are accepted (2 and 3 with
// a warning); anything above is rejected.
func (c *UnderwritingClient) ValidateAddress(ctx context.Context, ref CallRef, freeText string) (*models.AddressData, error) {
	searchEndpoint := "/v1/addresses/search"
	searchPayload := addressSearchRequest{Query: freeText}

	var searchResponse addressSearchResponse
	searchBody, searchElapsed, err := c.doPost(ctx, searchEndpoint, searchPayload, &searchResponse)

	if err == nil && len(searchResponse.Suggestions) == 0 {
		err = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeNoAddressMatches,
			fmt.Sprintf("no address matches for %q", freeText),
			"underwriting-client", "ValidateAddress", false, nil,
		)
	}
	if err != nil {
		err = c.asStepError(err, shared.CodeNoAddressMatches, "ValidateAddress")
	}

	c.auditCall(ctx, ref, models.AuditActionAddressSearch, searchEndpoint, searchPayload, searchBody, err, searchElapsed)
	c.AddressMetrics.RecordRequest(err == nil, searchElapsed)

	if err != nil {
		return nil, err
	}

	candidate := bestSuggestion(searchResponse.Suggestions)

	validateEndpoint := "/v1/addresses/validate"
	validatePayload := addressValidateRequest{SuggestionID: candidate.ID}

	var validateResponse addressValidateResponse
	validateBody, validateElapsed, err := c.doPost(ctx, validateEndpoint, validatePayload, &validateResponse)

	if err == nil && validateResponse.Address == nil {
		err = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeNoAddressMatches,
			fmt.Sprintf("address validation returned no address for candidate %q", candidate.FullAddress),
			"underwriting-client", "ValidateAddress", false, nil,
		)
	}
	if err == nil && !validateResponse.Address.QualityAcceptable() {
		err = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeAddressQualityRejected,
			fmt.Sprintf("address quality level %d for %q is outside the acceptable range (1-3)",
				validateResponse.Address.QualityLevel, candidate.FullAddress),
			"underwriting-client", "ValidateAddress", false, nil,
		)
	}
	if err != nil {
		// A remote fault on the validate leg is not a no-matches result, so
		// transport and timeout classifications are kept as-is here.
		err = c.asStepError(err, shared.CodeTransportFailed, "ValidateAddress")
	}

	c.auditCall(ctx, ref, models.AuditActionAddressValidate, validateEndpoint, validatePayload, validateBody, err, validateElapsed)
	c.AddressMetrics.RecordRequest(err == nil, validateElapsed)

	if err != nil {
		return nil, err
	}

	if validateResponse.Address.QualityLevel > 1 {
		logrus.WithFields(logrus.Fields{
			"component":     "UnderwritingClient",
			"batch_id":      ref.BatchID,
			"record_id":     ref.RecordID,
			"quality_level": validateResponse.Address.QualityLevel,
			"address":       validateResponse.Address.FullAddress,
		}).Warn("Accepted address with non-exact quality level")
	}

	return validateResponse.Address, nil
}

// CreateQuote composes the underwriting payload and requests a quote. The
// purchase-intent flag is a vendor quirk: it is only included for recent
// model years, and if the quote fails with the flag present the call is
// retried exactly once with the flag stripped. The retry's outcome is final.
func (c *UnderwritingClient) CreateQuote(ctx context.Context, ref CallRef, req QuoteRequest) (*models.QuoteData, error) {
	endpoint := "/v1/quotes"
	payload := createQuoteRequest{
		CoverType:     "third_party",
		NVIC:          req.Vehicle.NVIC,
		VehicleYear:   req.Vehicle.Year,
		SumInsured:    req.Vehicle.MarketValue,
		RiskAddressID: req.Address.AddressID,
		State:         req.State,
		Driver: quoteDriver{
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
		},
	}

	includeIntent := req.Vehicle.Year >= time.Now().Year()-purchaseIntentMaxVehicleAge
	if includeIntent {
		intent := true
		payload.PurchaseIntent = &intent
	}

	var response createQuoteResponse
	responseBody, elapsed, err := c.doPost(ctx, endpoint, payload, &response)

	if err == nil && response.Quote == nil {
		err = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeQuoteFailed,
			"quote creation returned no quote payload",
			"underwriting-client", "CreateQuote", false, nil,
		)
	}
	if err != nil {
		err = c.asStepError(err, shared.CodeQuoteFailed, "CreateQuote")
	}

	c.auditCall(ctx, ref, models.AuditActionCreateQuote, endpoint, payload, responseBody, err, elapsed)
	c.QuoteMetrics.RecordRequest(err == nil, elapsed)

	if err == nil {
		return response.Quote, nil
	}

	// Single retry with the vendor-specific field removed. Only fires when
	// the flag was actually sent and the failure looks like a payload
	// rejection rather than a transport fault.
	if !includeIntent || !shared.IsQuoteValidationShaped(err) {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "UnderwritingClient",
		"batch_id":  ref.BatchID,
		"record_id": ref.RecordID,
	}).Info("Retrying quote creation without purchase-intent flag")

	payload.PurchaseIntent = nil
	response = createQuoteResponse{}
	responseBody, elapsed, retryErr := c.doPost(ctx, endpoint, payload, &response)

	if retryErr == nil && response.Quote == nil {
		retryErr = shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeQuoteFailed,
			"quote creation retry returned no quote payload",
			"underwriting-client", "CreateQuote", false, nil,
		)
	}
	if retryErr != nil {
		retryErr = c.asStepError(retryErr, shared.CodeQuoteFailed, "CreateQuote")
	}

	c.auditCall(ctx, ref, models.AuditActionQuoteRetry, endpoint, payload, responseBody, retryErr, elapsed)
	c.QuoteMetrics.RecordRequest(retryErr == nil, elapsed)

	if retryErr != nil {
		return nil, retryErr
	}
	return response.Quote, nil
}

// bestSuggestion picks the top-ranked candidate (lowest rank wins, first
// entry on ties).
func bestSuggestion(suggestions []models.AddressSuggestion) models.AddressSuggestion {
	best := suggestions[0]
	for _, s := range suggestions[1:] {
		if s.Rank < best.Rank {
			best = s
		}
	}
	return best
}

// doPost executes one JSON POST against the underwriting service and decodes
// the response into out. Returns the raw response body for auditing and the
// call duration. Expected remote failures come back as classified errors.
func (c *UnderwritingClient) doPost(ctx context.Context, endpoint string, payload interface{}, out interface{}) (json.RawMessage, time.Duration, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	shared.SetJSONHeaders(request, c.apiKey)

	startTime := time.Now()
	response, err := c.httpClient.Do(request)
	elapsed := time.Since(startTime)

	if err != nil {
		return nil, elapsed, c.classifyTransportError(err, endpoint)
	}
	defer response.Body.Close()

	responseBody, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, elapsed, shared.NewServiceError(
			shared.ErrorCategoryNetwork, shared.CodeTransportFailed,
			fmt.Sprintf("failed to read response from %s: %v", endpoint, readErr),
			"underwriting-client", endpoint, true, readErr,
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return json.RawMessage(responseBody), elapsed, shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeTransportFailed,
			remoteErrorMessage(response.StatusCode, responseBody),
			"underwriting-client", endpoint, false, nil,
		)
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return json.RawMessage(responseBody), elapsed, shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeTransportFailed,
			fmt.Sprintf("failed to decode response from %s: %v", endpoint, err),
			"underwriting-client", endpoint, false, err,
		)
	}

	return json.RawMessage(responseBody), elapsed, nil
}

// classifyTransportError maps network-level failures into the taxonomy; a
// per-call timeout surfaces distinctly so it can be reported as TIMEOUT.
func (c *UnderwritingClient) classifyTransportError(err error, endpoint string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return shared.NewServiceError(
			shared.ErrorCategoryTimeout, shared.CodeTimeout,
			fmt.Sprintf("call to %s timed out", endpoint),
			"underwriting-client", endpoint, true, err,
		)
	}

	return shared.NewServiceError(
		shared.ErrorCategoryNetwork, shared.CodeTransportFailed,
		fmt.Sprintf("call to %s failed: %v", endpoint, err),
		"underwriting-client", endpoint, true, err,
	)
}

// asStepError stamps a failure with the step's error code unless it already
// carries a more specific classification (timeout, quality gate, no matches).
func (c *UnderwritingClient) asStepError(err error, stepCode, operation string) error {
	serviceErr, ok := err.(*shared.ServiceError)
	if !ok {
		return shared.WrapError(err, shared.ErrorCategoryProcessing, stepCode, "underwriting-client", operation, false)
	}
	if serviceErr.Code == shared.CodeTransportFailed {
		serviceErr.Code = stepCode
	}
	serviceErr.Operation = operation
	return serviceErr
}

// remoteErrorMessage extracts a human-readable message from a non-2xx
// response body where available.
func remoteErrorMessage(statusCode int, body []byte) string {
	var envelope remoteErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fmt.Sprintf("remote service returned HTTP %d", statusCode)
}

// auditCall writes one audit row for a remote call, on both success and
// failure paths, before control returns to the caller.
func (c *UnderwritingClient) auditCall(ctx context.Context, ref CallRef, action, endpoint string, payload interface{}, responseBody json.RawMessage, callErr error, elapsed time.Duration) {
	requestPayload, _ := json.Marshal(payload)

	entry := &models.AuditEntry{
		BatchID:         ref.BatchID,
		RecordID:        ref.RecordID,
		Action:          action,
		Status:          models.AuditStatusSuccess,
		Endpoint:        endpoint,
		RequestPayload:  requestPayload,
		ResponsePayload: responseBody,
		ElapsedMs:       elapsed.Milliseconds(),
	}
	if callErr != nil {
		entry.Status = models.AuditStatusFailure
		message := errorMessage(callErr)
		entry.ErrorMessage = &message
	}

	c.audit.Log(ctx, entry)
}

// errorMessage prefers the classified human-readable message over the
// decorated Error() string.
func errorMessage(err error) string {
	if serviceErr, ok := err.(*shared.ServiceError); ok {
		return serviceErr.Message
	}
	return err.Error()
}
