package handlers

import (
	"github.com/driveline-au/quote-backend/models"
	"github.com/driveline-au/quote-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BatchHandler struct {
	Service *services.BulkQuoteService
	Audit   *services.AuditLogger
}

func NewBatchHandler(service *services.BulkQuoteService, audit *services.AuditLogger) *BatchHandler {
	return &BatchHandler{Service: service, Audit: audit}
}

// SubmitBatch accepts the raw tab-delimited text in the request body and
// starts asynchronous processing. Row-level validation problems come back in
// the response alongside the batch id.
func (h *BatchHandler) SubmitBatch(c *fiber.Ctx) error {
	rawText := string(c.Body())
	batchName := c.Query("name", "")

	result, err := h.Service.SubmitBatch(rawText, batchName)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"data":    result,
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetBatch returns the aggregator's live progress snapshot.
func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	run := h.Service.GetRun(c.Params("id"))
	if run == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "batch not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    run.Aggregator.Snapshot(),
	})
}

// GetBatchRecords returns the live per-record status and results.
func (h *BatchHandler) GetBatchRecords(c *fiber.Ctx) error {
	run := h.Service.GetRun(c.Params("id"))
	if run == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "batch not found",
		})
	}

	views := make([]models.RecordView, 0, len(run.Records))
	for _, record := range run.Records {
		views = append(views, record.Snapshot())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    views,
	})
}

// ExportBatch serializes all records, including failures, as a CSV download.
func (h *BatchHandler) ExportBatch(c *fiber.Ctx) error {
	run := h.Service.GetRun(c.Params("id"))
	if run == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "batch not found",
		})
	}

	data, err := services.ExportRunCSV(run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="batch-`+c.Params("id")+`.csv"`)
	return c.Send(data)
}

// GetSessionLog returns the in-memory human-readable log for a batch.
func (h *BatchHandler) GetSessionLog(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid batch id",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Audit.SessionFor(batchID).Lines(),
	})
}

// ClearSessionLog resets the in-memory log. The durable audit trail is
// unaffected.
func (h *BatchHandler) ClearSessionLog(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid batch id",
		})
	}

	h.Audit.SessionFor(batchID).Clear()
	return c.JSON(fiber.Map{
		"success": true,
	})
}
