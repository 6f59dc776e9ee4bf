package models

// VehicleDetails is the normalized result of a registration lookup against
// the underwriting service.
type VehicleDetails struct {
	NVIC         string  `json:"nvic"`
	Year         int     `json:"year"`
	Make         string  `json:"make"`
	Family       string  `json:"family"`
	Variant      string  `json:"variant"`
	BodyStyle    string  `json:"body_style"`
	Transmission string  `json:"transmission"`
	DriveType    string  `json:"drive_type"`
	EngineSize   string  `json:"engine_size"`
	MarketValue  float64 `json:"market_value"`
}

// Description returns a short human-readable vehicle summary for log lines.
func (v *VehicleDetails) Description() string {
	if v == nil {
		return ""
	}
	desc := v.Make
	if v.Family != "" {
		desc += " " + v.Family
	}
	if v.Variant != "" {
		desc += " " + v.Variant
	}
	return desc
}
