package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// TemplatesHandler manages SLA template configuration endpoints.
type TemplatesHandler struct {
	templates repository.TemplateRepository
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templates repository.TemplateRepository) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

// Create POST /templates.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	template := &domain.SlaTemplate{Name: strings.TrimSpace(req.Name)}
	for _, rule := range req.Rules {
		template.Rules = append(template.Rules, domain.SlaRule{
			Priority:        rule.Priority,
			ResponseMinutes: rule.ResponseMinutes,
			SolutionMinutes: rule.SolutionMinutes,
		})
	}
	if err := template.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	if err := h.templates.Create(c.Context(), template); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": templateResponse(template)})
}

// Get GET /templates/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	template, err := h.templates.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(template)})
}

func templateResponse(template *domain.SlaTemplate) dto.TemplateResponse {
	rules := make([]dto.TemplateRuleRequest, 0, len(template.Rules))
	for _, rule := range template.Rules {
		rules = append(rules, dto.TemplateRuleRequest{
			Priority:        rule.Priority,
			ResponseMinutes: rule.ResponseMinutes,
			SolutionMinutes: rule.SolutionMinutes,
		})
	}
	return dto.TemplateResponse{
		ID:        template.ID,
		Name:      template.Name,
		Rules:     rules,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}
}
