package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const calendarCachePrefix = "sla:calendar:"

// cachedCalendarRepository decorates a CalendarRepository with a Redis
// read-through cache. Calendars are read on every deadline computation but
// change rarely; writes invalidate the cached copy so in-flight
// recalculations pick up edits.
type cachedCalendarRepository struct {
	inner  CalendarRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCalendarRepository wraps inner with a Redis cache. Cache failures
// degrade to direct reads.
func NewCachedCalendarRepository(inner CalendarRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) CalendarRepository {
	if client == nil {
		return inner
	}
	return &cachedCalendarRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

type cachedCalendar struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Timezone     string                   `json:"timezone"`
	WorkingHours map[string][]intervalDoc `json:"working_hours"`
	Holidays     []holidayDoc             `json:"holidays"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func (r *cachedCalendarRepository) Create(ctx context.Context, calendar *domain.BusinessCalendar) error {
	if err := r.inner.Create(ctx, calendar); err != nil {
		return err
	}
	r.invalidate(ctx, calendar.ID)
	return nil
}

func (r *cachedCalendarRepository) Update(ctx context.Context, calendar *domain.BusinessCalendar) error {
	if err := r.inner.Update(ctx, calendar); err != nil {
		return err
	}
	r.invalidate(ctx, calendar.ID)
	return nil
}

func (r *cachedCalendarRepository) GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error) {
	if cached := r.lookup(ctx, id); cached != nil {
		return cached, nil
	}
	calendar, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, calendar)
	return calendar, nil
}

func (r *cachedCalendarRepository) lookup(ctx context.Context, id string) *domain.BusinessCalendar {
	payload, err := r.client.Get(ctx, calendarCachePrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("calendar cache read failed", zap.Error(err))
		}
		return nil
	}
	var doc cachedCalendar
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil
	}
	calendar := &domain.BusinessCalendar{
		ID:        doc.ID,
		Name:      doc.Name,
		Timezone:  doc.Timezone,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	hours, err := json.Marshal(doc.WorkingHours)
	if err != nil {
		return nil
	}
	holidays, err := json.Marshal(doc.Holidays)
	if err != nil {
		return nil
	}
	if err := decodeCalendar(calendar, hours, holidays); err != nil {
		return nil
	}
	return calendar
}

func (r *cachedCalendarRepository) store(ctx context.Context, calendar *domain.BusinessCalendar) {
	hours, holidays, err := encodeCalendar(calendar)
	if err != nil {
		return
	}
	doc := cachedCalendar{
		ID:        calendar.ID,
		Name:      calendar.Name,
		Timezone:  calendar.Timezone,
		CreatedAt: calendar.CreatedAt,
		UpdatedAt: calendar.UpdatedAt,
	}
	if err := json.Unmarshal(hours, &doc.WorkingHours); err != nil {
		return
	}
	if err := json.Unmarshal(holidays, &doc.Holidays); err != nil {
		return
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, calendarCachePrefix+calendar.ID, payload, r.ttl).Err(); err != nil {
		r.logger.Debug("calendar cache write failed", zap.Error(err))
	}
}

func (r *cachedCalendarRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, calendarCachePrefix+id).Err(); err != nil {
		r.logger.Debug("calendar cache invalidation failed", zap.Error(err))
	}
}
