package models

// QuoteData is the result of quote generation: a reference number and the
// 4-part premium breakdown.
type QuoteData struct {
	QuoteNumber  string  `json:"quote_number"`
	BasePremium  float64 `json:"base_premium"`
	StampDuty    float64 `json:"stamp_duty"`
	GST          float64 `json:"gst"`
	TotalPremium float64 `json:"total_premium"`
}
