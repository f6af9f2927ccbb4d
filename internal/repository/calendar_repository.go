package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// CalendarRepository encapsulates business calendar persistence.
type CalendarRepository interface {
	Create(ctx context.Context, calendar *domain.BusinessCalendar) error
	Update(ctx context.Context, calendar *domain.BusinessCalendar) error
	GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error)
}

type calendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository instantiates the repository.
func NewCalendarRepository(pool *pgxpool.Pool) CalendarRepository {
	return &calendarRepository{pool: pool}
}

// calendarDoc is the JSONB shape for working hours and holidays. JSON object
// keys must be strings, so weekdays are serialized as "0".."6".
type calendarDoc struct {
	WorkingHours map[string][]intervalDoc `json:"working_hours"`
	Holidays     []holidayDoc             `json:"holidays"`
}

type intervalDoc struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type holidayDoc struct {
	Date       string                   `json:"date"`
	Recurrence domain.HolidayRecurrence `json:"recurrence"`
}

func (r *calendarRepository) Create(ctx context.Context, calendar *domain.BusinessCalendar) error {
	hours, holidays, err := encodeCalendar(calendar)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO business_calendars (name, timezone, working_hours, holidays)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		calendar.Name,
		calendar.Timezone,
		hours,
		holidays,
	).Scan(&calendar.ID, &calendar.CreatedAt, &calendar.UpdatedAt)
}

func (r *calendarRepository) Update(ctx context.Context, calendar *domain.BusinessCalendar) error {
	hours, holidays, err := encodeCalendar(calendar)
	if err != nil {
		return err
	}
	const query = `
        UPDATE business_calendars
        SET name=$1, timezone=$2, working_hours=$3, holidays=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		calendar.Name,
		calendar.Timezone,
		hours,
		holidays,
		calendar.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *calendarRepository) GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error) {
	const query = `
        SELECT id, name, timezone, working_hours, holidays, created_at, updated_at
        FROM business_calendars WHERE id=$1`
	var (
		calendar domain.BusinessCalendar
		hours    []byte
		holidays []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&calendar.ID,
		&calendar.Name,
		&calendar.Timezone,
		&hours,
		&holidays,
		&calendar.CreatedAt,
		&calendar.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeCalendar(&calendar, hours, holidays); err != nil {
		return nil, err
	}
	return &calendar, nil
}

func encodeCalendar(calendar *domain.BusinessCalendar) ([]byte, []byte, error) {
	hoursDoc := make(map[string][]intervalDoc, len(calendar.WorkingHours))
	for weekday, intervals := range calendar.WorkingHours {
		docs := make([]intervalDoc, 0, len(intervals))
		for _, interval := range intervals {
			docs = append(docs, intervalDoc{Start: interval.Start, End: interval.End})
		}
		hoursDoc[strconv.Itoa(int(weekday))] = docs
	}
	hours, err := json.Marshal(hoursDoc)
	if err != nil {
		return nil, nil, err
	}

	holidayDocs := make([]holidayDoc, 0, len(calendar.Holidays))
	for _, holiday := range calendar.Holidays {
		holidayDocs = append(holidayDocs, holidayDoc{
			Date:       holiday.Date.Format("2006-01-02"),
			Recurrence: holiday.Recurrence,
		})
	}
	holidays, err := json.Marshal(holidayDocs)
	if err != nil {
		return nil, nil, err
	}
	return hours, holidays, nil
}

func decodeCalendar(calendar *domain.BusinessCalendar, hours, holidays []byte) error {
	var hoursDoc map[string][]intervalDoc
	if err := json.Unmarshal(hours, &hoursDoc); err != nil {
		return err
	}
	calendar.WorkingHours = make(map[time.Weekday][]domain.WorkingInterval, len(hoursDoc))
	for key, docs := range hoursDoc {
		weekday, err := strconv.Atoi(key)
		if err != nil {
			return err
		}
		intervals := make([]domain.WorkingInterval, 0, len(docs))
		for _, doc := range docs {
			intervals = append(intervals, domain.WorkingInterval{Start: doc.Start, End: doc.End})
		}
		calendar.WorkingHours[time.Weekday(weekday)] = intervals
	}

	var holidayDocs []holidayDoc
	if err := json.Unmarshal(holidays, &holidayDocs); err != nil {
		return err
	}
	calendar.Holidays = make([]domain.Holiday, 0, len(holidayDocs))
	for _, doc := range holidayDocs {
		date, err := domain.ParseHolidayDate(doc.Date)
		if err != nil {
			return err
		}
		calendar.Holidays = append(calendar.Holidays, domain.Holiday{Date: date, Recurrence: doc.Recurrence})
	}
	return nil
}
