package models

// AddressSuggestion is one ranked candidate returned by the free-text
// address search.
type AddressSuggestion struct {
	ID          string `json:"id"`
	FullAddress string `json:"full_address"`
	Rank        int    `json:"rank"`
}

// AddressData is the canonical, validated address used as the risk-address
// key downstream. QualityLevel is a 1-5 confidence score (1 = exact match);
// only levels 1-3 are acceptable for underwriting.
type AddressData struct {
	AddressID    string   `json:"address_id"`
	FullAddress  string   `json:"full_address"`
	UnitNumber   string   `json:"unit_number,omitempty"`
	StreetNumber string   `json:"street_number"`
	StreetName   string   `json:"street_name"`
	StreetType   string   `json:"street_type"`
	Suburb       string   `json:"suburb"`
	State        string   `json:"state"`
	Postcode     string   `json:"postcode"`
	QualityLevel int      `json:"quality_level"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// QualityAcceptable reports whether the validation confidence is good enough
// to proceed to quote generation.
func (a *AddressData) QualityAcceptable() bool {
	return a.QualityLevel >= 1 && a.QualityLevel <= 3
}
