package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-tracker/internal/api/dto"
	"github.com/spec-kit/support-tracker/internal/service"
	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

// EventsHandler accepts lifecycle events and feeds them to the reducer.
type EventsHandler struct {
	reducer *service.ReducerService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(reducer *service.ReducerService) *EventsHandler {
	return &EventsHandler{reducer: reducer}
}

// ApplyEvent POST /events.
func (h *EventsHandler) ApplyEvent(c *fiber.Ctx) error {
	var req dto.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	payload, err := req.Normalize()
	if err != nil {
		return err
	}

	outcome, err := h.reducer.ApplyEvent(c.Context(), payload)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if outcome.Action == service.ActionCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewOutcomeResponse(outcome)})
}
