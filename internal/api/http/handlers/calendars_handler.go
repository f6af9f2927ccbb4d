package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// CalendarsHandler manages business calendar configuration endpoints.
type CalendarsHandler struct {
	calendars repository.CalendarRepository
}

// NewCalendarsHandler constructs handler.
func NewCalendarsHandler(calendars repository.CalendarRepository) *CalendarsHandler {
	return &CalendarsHandler{calendars: calendars}
}

// Create POST /calendars.
func (h *CalendarsHandler) Create(c *fiber.Ctx) error {
	var req dto.CalendarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	calendar, err := calendarFromRequest(&req)
	if err != nil {
		return err
	}
	if err := h.calendars.Create(c.Context(), calendar); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": calendarResponse(calendar)})
}

// Update PUT /calendars/:id.
func (h *CalendarsHandler) Update(c *fiber.Ctx) error {
	var req dto.CalendarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	calendar, err := calendarFromRequest(&req)
	if err != nil {
		return err
	}
	calendar.ID = c.Params("id")
	if err := h.calendars.Update(c.Context(), calendar); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": calendarResponse(calendar)})
}

// Get GET /calendars/:id.
func (h *CalendarsHandler) Get(c *fiber.Ctx) error {
	calendar, err := h.calendars.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": calendarResponse(calendar)})
}

// calendarFromRequest parses and validates the payload. Malformed clock
// values, holiday dates, and empty calendars are all rejected here, at
// configuration time, so they can never surface during deadline arithmetic.
func calendarFromRequest(req *dto.CalendarRequest) (*domain.BusinessCalendar, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Timezone) == "" {
		return nil, apperrors.NewValidationError("name and timezone required", nil)
	}
	calendar := &domain.BusinessCalendar{
		Name:         strings.TrimSpace(req.Name),
		Timezone:     strings.TrimSpace(req.Timezone),
		WorkingHours: make(map[time.Weekday][]domain.WorkingInterval, len(req.WorkingHours)),
	}
	for key, intervals := range req.WorkingHours {
		weekday, err := strconv.Atoi(key)
		if err != nil || weekday < 0 || weekday > 6 {
			return nil, apperrors.NewValidationError("weekday keys must be 0-6", map[string]any{"weekday": key})
		}
		parsed := make([]domain.WorkingInterval, 0, len(intervals))
		for _, interval := range intervals {
			start, err := domain.ParseClock(interval.Start)
			if err != nil {
				return nil, apperrors.NewValidationError(err.Error(), nil)
			}
			end, err := domain.ParseClock(interval.End)
			if err != nil {
				return nil, apperrors.NewValidationError(err.Error(), nil)
			}
			parsed = append(parsed, domain.WorkingInterval{Start: start, End: end})
		}
		calendar.WorkingHours[time.Weekday(weekday)] = parsed
	}
	for _, holiday := range req.Holidays {
		date, err := domain.ParseHolidayDate(holiday.Date)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		recurrence := domain.HolidayRecurrenceNone
		if holiday.Recurrence != "" {
			recurrence = domain.HolidayRecurrence(strings.ToUpper(holiday.Recurrence))
		}
		calendar.Holidays = append(calendar.Holidays, domain.Holiday{Date: date, Recurrence: recurrence})
	}
	if err := calendar.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	return calendar, nil
}

func calendarResponse(calendar *domain.BusinessCalendar) dto.CalendarResponse {
	hours := make(map[string][]dto.WorkingIntervalRequest, len(calendar.WorkingHours))
	for weekday, intervals := range calendar.WorkingHours {
		out := make([]dto.WorkingIntervalRequest, 0, len(intervals))
		for _, interval := range intervals {
			out = append(out, dto.WorkingIntervalRequest{
				Start: formatClock(interval.Start),
				End:   formatClock(interval.End),
			})
		}
		hours[strconv.Itoa(int(weekday))] = out
	}
	holidays := make([]dto.HolidayRequest, 0, len(calendar.Holidays))
	for _, holiday := range calendar.Holidays {
		holidays = append(holidays, dto.HolidayRequest{
			Date:       holiday.Date.Format("2006-01-02"),
			Recurrence: string(holiday.Recurrence),
		})
	}
	return dto.CalendarResponse{
		ID:           calendar.ID,
		Name:         calendar.Name,
		Timezone:     calendar.Timezone,
		WorkingHours: hours,
		Holidays:     holidays,
		CreatedAt:    calendar.CreatedAt,
		UpdatedAt:    calendar.UpdatedAt,
	}
}

func formatClock(minutes int) string {
	return pad(minutes/60) + ":" + pad(minutes%60)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
