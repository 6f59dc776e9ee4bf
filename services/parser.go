package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/driveline-au/quote-backend/models"
	"github.com/sirupsen/logrus"
)

var (
	registrationPattern = regexp.MustCompile(`^[A-Z0-9]{2,9}$`)
	statePattern        = regexp.MustCompile(`\b(NSW|VIC|QLD|SA|WA|TAS|NT|ACT)\b`)
)

// recognized gender inputs, normalized to the canonical form
var genderAliases = map[string]string{
	"male":   "Male",
	"m":      "Male",
	"female": "Female",
	"f":      "Female",
}

// RecordParser turns raw tab-delimited text into validated BulkRecords.
// It is a pure function over the input: all problems come back as row-level
// diagnostics, never as a panic or partial mutation.
type RecordParser struct {
	maxRecords int
}

// NewRecordParser creates a parser with the given batch size cap. The cap
// protects the remote service's rate limits: a submission whose valid-record
// count exceeds it is rejected outright.
func NewRecordParser(maxRecords int) *RecordParser {
	return &RecordParser{maxRecords: maxRecords}
}

// Parse splits raw text into lines and validates each one. A line must carry
// 4 tab-separated fields: registration, address, date of birth (dd/mm/yyyy)
// and gender. The jurisdiction is extracted from within the address field.
// Returns the accepted records with 1-based sequence ids plus one diagnostic
// per rejected row.
func (p *RecordParser) Parse(text string) ([]*models.BulkRecord, []string) {
	var records []*models.BulkRecord
	var errors []string

	lines := strings.Split(text, "\n")
	rowNumber := 0

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rowNumber++

		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			errors = append(errors, fmt.Sprintf("row %d: missing fields (expected registration, address, date of birth and gender separated by tabs)", rowNumber))
			continue
		}

		registration := strings.ToUpper(strings.TrimSpace(fields[0]))
		address := strings.TrimSpace(fields[1])
		dob := strings.TrimSpace(fields[2])
		gender := strings.TrimSpace(fields[3])

		if !registrationPattern.MatchString(registration) {
			errors = append(errors, fmt.Sprintf("row %d: invalid registration %q", rowNumber, fields[0]))
			continue
		}

		state, err := extractState(address)
		if err != nil {
			errors = append(errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}

		if _, err := time.Parse("02/01/2006", dob); err != nil {
			errors = append(errors, fmt.Sprintf("row %d: invalid date of birth %q (expected dd/mm/yyyy)", rowNumber, dob))
			continue
		}

		normalizedGender, ok := genderAliases[strings.ToLower(gender)]
		if !ok {
			errors = append(errors, fmt.Sprintf("row %d: unrecognized gender %q", rowNumber, gender))
			continue
		}

		record := models.NewBulkRecord(len(records)+1, registration, state, address, dob, normalizedGender)
		records = append(records, record)
	}

	if len(records) > p.maxRecords {
		logrus.WithFields(logrus.Fields{
			"component":    "RecordParser",
			"record_count": len(records),
			"max_records":  p.maxRecords,
		}).Warn("Batch rejected: record count exceeds maximum")
		return nil, []string{fmt.Sprintf("batch rejected: %d valid records exceeds the maximum of %d", len(records), p.maxRecords)}
	}

	logrus.WithFields(logrus.Fields{
		"component":     "RecordParser",
		"total_rows":    rowNumber,
		"valid_records": len(records),
		"rejected_rows": len(errors),
	}).Info("Parsed bulk record submission")

	return records, errors
}

// extractState finds exactly one of the 8 jurisdiction codes inside the
// address text. Zero matches or conflicting matches are validation errors.
func extractState(address string) (string, error) {
	matches := statePattern.FindAllString(strings.ToUpper(address), -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no recognizable state in address %q", address)
	}

	state := matches[0]
	for _, m := range matches[1:] {
		if m != state {
			return "", fmt.Errorf("ambiguous state in address %q (found %s and %s)", address, state, m)
		}
	}
	return state, nil
}
