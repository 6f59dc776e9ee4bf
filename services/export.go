package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// ExportRunCSV serializes every record of a run, including failures, to a
// tabular file for operator download. This is a side output: it has no
// bearing on pipeline correctness.
func ExportRunCSV(run *BatchRun) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	header := []string{
		"sequence_id", "registration", "state", "address", "date_of_birth", "gender",
		"status", "error_message",
		"vehicle_year", "vehicle_make", "vehicle_family", "market_value",
		"validated_address", "quality_level",
		"quote_number", "base_premium", "stamp_duty", "gst", "total_premium",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, record := range run.Records {
		view := record.Snapshot()

		row := []string{
			strconv.Itoa(view.SequenceID), view.Registration, view.State,
			view.Address, view.DateOfBirth, view.Gender,
			string(view.Status), view.ErrorMessage,
			"", "", "", "",
			"", "",
			"", "", "", "", "",
		}

		if view.Vehicle != nil {
			row[8] = strconv.Itoa(view.Vehicle.Year)
			row[9] = view.Vehicle.Make
			row[10] = view.Vehicle.Family
			row[11] = strconv.FormatFloat(view.Vehicle.MarketValue, 'f', 2, 64)
		}
		if view.RiskAddress != nil {
			row[12] = view.RiskAddress.FullAddress
			row[13] = strconv.Itoa(view.RiskAddress.QualityLevel)
		}
		if view.Quote != nil {
			row[14] = view.Quote.QuoteNumber
			row[15] = strconv.FormatFloat(view.Quote.BasePremium, 'f', 2, 64)
			row[16] = strconv.FormatFloat(view.Quote.StampDuty, 'f', 2, 64)
			row[17] = strconv.FormatFloat(view.Quote.GST, 'f', 2, 64)
			row[18] = strconv.FormatFloat(view.Quote.TotalPremium, 'f', 2, 64)
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write export row %d: %w", view.SequenceID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":    "Export",
		"batch_id":     run.Batch.ID,
		"record_count": len(run.Records),
		"bytes":        buffer.Len(),
	}).Info("Exported batch records to CSV")

	return buffer.Bytes(), nil
}
