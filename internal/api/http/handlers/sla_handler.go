package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// SlaHandler exposes per-ticket SLA operations.
type SlaHandler struct {
	service *service.SlaService
}

// NewSlaHandler constructs handler.
func NewSlaHandler(slaService *service.SlaService) *SlaHandler {
	return &SlaHandler{service: slaService}
}

// ComputeInitial POST /tickets/:id/sla. Called by the ticket system when a
// ticket is created. A ticket without an applicable rule yields 200 with a
// null calculation rather than an error.
func (h *SlaHandler) ComputeInitial(c *fiber.Ctx) error {
	calc, err := h.service.ComputeInitialSla(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if calc == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": calculationResponse(calc)})
}

// Recalculate POST /tickets/:id/sla/recalculate.
func (h *SlaHandler) Recalculate(c *fiber.Ctx) error {
	var req dto.RecalculateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Reason == "" {
		return apperrors.NewValidationError("reason required", nil)
	}
	calc, err := h.service.Recalculate(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	if calc == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": calculationResponse(calc)})
}

// Status GET /tickets/:id/sla.
func (h *SlaHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.GetCurrentStatus(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SlaStatusResponse{
		TicketID:             status.TicketID,
		ResponseStatus:       status.ResponseStatus,
		SolutionStatus:       status.SolutionStatus,
		ResponseDueAt:        status.ResponseDueAt,
		SolutionDueAt:        status.SolutionDueAt,
		TimeRemainingMinutes: status.TimeRemainingMinutes,
	}})
}

// History GET /tickets/:id/sla/history.
func (h *SlaHandler) History(c *fiber.Ctx) error {
	history, err := h.service.ListHistory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.SlaCalculationResponse, 0, len(history))
	for i := range history {
		items = append(items, calculationResponse(&history[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func calculationResponse(calc *domain.SlaCalculation) dto.SlaCalculationResponse {
	return dto.SlaCalculationResponse{
		ID:            calc.ID,
		TicketID:      calc.TicketID,
		ContractID:    calc.ContractID,
		TemplateID:    calc.TemplateID,
		CalendarID:    calc.CalendarID,
		Priority:      calc.Priority,
		ResponseDueAt: calc.ResponseDueAt,
		SolutionDueAt: calc.SolutionDueAt,
		Reason:        calc.Reason,
		IsCurrent:     calc.IsCurrent,
		CalculatedAt:  calc.CalculatedAt,
	}
}
