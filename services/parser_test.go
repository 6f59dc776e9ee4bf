package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/driveline-au/quote-backend/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleValidLine(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale")

	require.Len(t, records, 1)
	assert.Empty(t, errors)

	record := records[0]
	assert.Equal(t, 1, record.SequenceID)
	assert.Equal(t, "ABC123", record.Registration)
	assert.Equal(t, "QLD", record.State)
	assert.Equal(t, "123 Main Street, Brisbane QLD 4000", record.Address)
	assert.Equal(t, "15/03/1985", record.DateOfBirth)
	assert.Equal(t, "Male", record.Gender)
	assert.Equal(t, models.RecordStatusPending, record.Status)
}

func TestParseMissingFields(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\tBrisbane QLD")

	assert.Empty(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "row 1")
	assert.Contains(t, errors[0], "missing fields")
}

func TestParseStateExtraction(t *testing.T) {
	parser := NewRecordParser(500)

	cases := []struct {
		address string
		state   string
	}{
		{"1 George Street, Sydney NSW 2000", "NSW"},
		{"10 Collins Street, Melbourne VIC 3000", "VIC"},
		{"5 King William Street, Adelaide SA 5000", "SA"},
		{"20 St Georges Terrace, Perth WA 6000", "WA"},
		{"3 Elizabeth Street, Hobart TAS 7000", "TAS"},
		{"7 Mitchell Street, Darwin NT 0800", "NT"},
		{"2 London Circuit, Canberra ACT 2601", "ACT"},
	}

	for _, tc := range cases {
		line := fmt.Sprintf("XYZ789\t%s\t01/01/1990\tFemale", tc.address)
		records, errors := parser.Parse(line)

		require.Len(t, records, 1, "address: %s", tc.address)
		assert.Empty(t, errors)
		assert.Equal(t, tc.state, records[0].State)
	}
}

func TestParseNoStateInAddress(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\t123 Main Street, Springfield\t15/03/1985\tMale")

	assert.Empty(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "no recognizable state")
}

func TestParseAmbiguousStateInAddress(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\t1 NSW Street, Melbourne VIC 3000\t15/03/1985\tMale")

	assert.Empty(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "ambiguous state")
}

func TestParseRepeatedStateTokenIsNotAmbiguous(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\t5 QLD Avenue, Brisbane QLD 4000\t15/03/1985\tMale")

	require.Len(t, records, 1)
	assert.Empty(t, errors)
	assert.Equal(t, "QLD", records[0].State)
}

func TestParseInvalidDateOfBirth(t *testing.T) {
	parser := NewRecordParser(500)

	// month/day order is dd/mm/yyyy; 15 is not a valid month
	records, errors := parser.Parse("ABC123\t123 Main Street, Brisbane QLD 4000\t03/15/1985\tMale")

	assert.Empty(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "invalid date of birth")
}

func TestParseGenderNormalization(t *testing.T) {
	parser := NewRecordParser(500)

	cases := map[string]string{
		"Male":   "Male",
		"male":   "Male",
		"M":      "Male",
		"f":      "Female",
		"FEMALE": "Female",
	}

	for input, want := range cases {
		line := fmt.Sprintf("ABC123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\t%s", input)
		records, errors := parser.Parse(line)

		require.Len(t, records, 1, "gender input: %s", input)
		assert.Empty(t, errors)
		assert.Equal(t, want, records[0].Gender)
	}
}

func TestParseUnrecognizedGender(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("ABC123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tunknown")

	assert.Empty(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "unrecognized gender")
}

func TestParseSkipsBlankLinesAndCarriageReturns(t *testing.T) {
	parser := NewRecordParser(500)

	text := "\r\nABC123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale\r\n\n   \nDEF456\t1 George Street, Sydney NSW 2000\t20/07/1970\tFemale\r\n"
	records, errors := parser.Parse(text)

	require.Len(t, records, 2)
	assert.Empty(t, errors)
	assert.Equal(t, 1, records[0].SequenceID)
	assert.Equal(t, 2, records[1].SequenceID)
	assert.Equal(t, "NSW", records[1].State)
}

func TestParseMixedValidAndInvalidRows(t *testing.T) {
	parser := NewRecordParser(500)

	lines := []string{
		"ABC123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale",
		"short line",
		"DEF456\t1 George Street, Sydney NSW 2000\t20/07/1970\tFemale",
		"!!bad!!\t10 Collins Street, Melbourne VIC 3000\t01/01/1990\tMale",
	}
	records, errors := parser.Parse(strings.Join(lines, "\n"))

	require.Len(t, records, 2)
	require.Len(t, errors, 2)

	// Sequence ids follow acceptance order, not raw row numbers.
	assert.Equal(t, 1, records[0].SequenceID)
	assert.Equal(t, 2, records[1].SequenceID)

	// Diagnostics cite the 1-based non-blank row number.
	assert.Contains(t, errors[0], "row 2")
	assert.Contains(t, errors[1], "row 4")
}

func TestParseRegistrationNormalizedToUpper(t *testing.T) {
	parser := NewRecordParser(500)

	records, errors := parser.Parse("abc123\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale")

	require.Len(t, records, 1)
	assert.Empty(t, errors)
	assert.Equal(t, "ABC123", records[0].Registration)
}

func TestParseRejectsBatchOverCap(t *testing.T) {
	parser := NewRecordParser(3)

	var lines []string
	for i := 0; i < 4; i++ {
		lines = append(lines, fmt.Sprintf("REG%d\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale", i))
	}
	records, errors := parser.Parse(strings.Join(lines, "\n"))

	assert.Nil(t, records)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "batch rejected")
	assert.Contains(t, errors[0], "4 valid records exceeds the maximum of 3")
}

func TestParseAtCapIsAccepted(t *testing.T) {
	parser := NewRecordParser(3)

	var lines []string
	for i := 0; i < 3; i++ {
		lines = append(lines, fmt.Sprintf("REG%d\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale", i))
	}
	records, errors := parser.Parse(strings.Join(lines, "\n"))

	assert.Len(t, records, 3)
	assert.Empty(t, errors)
}

// validLine builds a parseable row for the given registration suffix.
func validLine(i int) string {
	return fmt.Sprintf("REG%d\t123 Main Street, Brisbane QLD 4000\t15/03/1985\tMale", i)
}

func TestParseLineAccountingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	parser := NewRecordParser(500)

	properties.Property("accepted plus rejected equals non-blank input rows", prop.ForAll(
		func(validCount, invalidCount int) bool {
			var lines []string
			for i := 0; i < validCount; i++ {
				lines = append(lines, validLine(i))
			}
			for i := 0; i < invalidCount; i++ {
				lines = append(lines, fmt.Sprintf("broken row %d without tabs", i))
			}

			records, errors := parser.Parse(strings.Join(lines, "\n"))
			return len(records) == validCount && len(errors) == invalidCount
		},
		gen.IntRange(0, 40),
		gen.IntRange(0, 40),
	))

	properties.Property("parsing is idempotent over the same input", prop.ForAll(
		func(validCount int) bool {
			var lines []string
			for i := 0; i < validCount; i++ {
				lines = append(lines, validLine(i))
			}
			text := strings.Join(lines, "\n")

			first, firstErrors := parser.Parse(text)
			second, secondErrors := parser.Parse(text)

			if len(first) != len(second) || len(firstErrors) != len(secondErrors) {
				return false
			}
			for i := range first {
				if first[i].Registration != second[i].Registration ||
					first[i].SequenceID != second[i].SequenceID ||
					first[i].State != second[i].State {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
	))

	properties.Property("sequence ids are dense and 1-based over accepted records", prop.ForAll(
		func(validCount, invalidEvery int) bool {
			var lines []string
			for i := 0; i < validCount; i++ {
				lines = append(lines, validLine(i))
				if invalidEvery > 0 && i%invalidEvery == 0 {
					lines = append(lines, "not enough fields")
				}
			}

			records, _ := parser.Parse(strings.Join(lines, "\n"))
			for i, record := range records {
				if record.SequenceID != i+1 {
					return false
				}
			}
			return len(records) == validCount
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
