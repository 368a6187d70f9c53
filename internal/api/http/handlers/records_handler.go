package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-tracker/internal/api/dto"
	"github.com/spec-kit/support-tracker/internal/domain"
	"github.com/spec-kit/support-tracker/internal/repository"
	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

// RecordsHandler serves the read side: one record by thread id, or a
// filtered listing for reporting.
type RecordsHandler struct {
	records repository.RecordRepository
}

// NewRecordsHandler constructs handler.
func NewRecordsHandler(records repository.RecordRepository) *RecordsHandler {
	return &RecordsHandler{records: records}
}

// GetRecord GET /records/:thread_id.
func (h *RecordsHandler) GetRecord(c *fiber.Ctx) error {
	threadID := domain.NormalizeThreadID(c.Params("thread_id"))
	record, err := h.records.GetByThreadID(c.Context(), threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("record", map[string]any{"thread_id": threadID})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRecordResponse(record)})
}

// ListRecords GET /records.
func (h *RecordsHandler) ListRecords(c *fiber.Ctx) error {
	filter := parseRecordQuery(c)
	records, err := h.records.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.RecordResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.NewRecordResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": dto.RecordListResponse{Records: items, Count: len(items)}})
}

func parseRecordQuery(c *fiber.Ctx) repository.RecordFilter {
	filter := repository.RecordFilter{}
	if v := parseBool(c.Query("is_engineering")); v != nil {
		filter.IsEngineering = v
	}
	if v := parseBool(c.Query("resolved")); v != nil {
		filter.Resolved = v
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseBool(val string) *bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
