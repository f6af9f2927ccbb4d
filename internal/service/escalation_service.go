package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// StatusEvent records one leg crossing an alert threshold.
type StatusEvent struct {
	TicketID      string
	CalculationID string
	Leg           domain.Leg
	OldStatus     domain.LegStatus
	NewStatus     domain.LegStatus
	Level         int
	DueAt         *time.Time
	At            time.Time
}

// EscalationService evaluates current calculations against wall-clock time
// and emits escalation events exactly once per threshold crossing. It reads
// tickets and calculations and writes only escalation bookkeeping, never due
// dates.
type EscalationService struct {
	calculations repository.SlaCalculationRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
	workers      int
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	CalculationRepo repository.SlaCalculationRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	// Workers shards the sweep across goroutines. Ordering per ticket+leg is
	// still guaranteed by the compare-and-set on the escalation level.
	Workers int
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	workers := deps.Workers
	if workers <= 0 {
		workers = 4
	}
	return &EscalationService{
		calculations: deps.CalculationRepo,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		workers:      workers,
	}
}

// Sweep runs one pass over all in-flight calculations. Calling it twice with
// the same now and no intervening ticket changes emits nothing the second
// time: each threshold crossing is claimed through the CAS escalation level.
func (s *EscalationService) Sweep(ctx context.Context, now time.Time) ([]StatusEvent, error) {
	start := time.Now()
	items, err := s.calculations.ListInFlight(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SweepBatchSize.Set(float64(len(items)))
		defer func() {
			s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		}()
	}

	chunks := shard(items, s.workers)
	var (
		mu       sync.Mutex
		swept    []StatusEvent
		firstErr error
		wg       sync.WaitGroup
	)
	for _, chunk := range chunks {
		wg.Add(1)
		go func(batch []repository.CalculationWithTicket) {
			defer wg.Done()
			batchEvents, err := s.sweepBatch(ctx, batch, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			swept = append(swept, batchEvents...)
		}(chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return swept, firstErr
	}
	return swept, nil
}

func (s *EscalationService) sweepBatch(ctx context.Context, batch []repository.CalculationWithTicket, now time.Time) ([]StatusEvent, error) {
	var result []StatusEvent
	for _, item := range batch {
		for _, leg := range []domain.Leg{domain.LegResponse, domain.LegSolution} {
			event, err := s.evaluateLeg(ctx, &item, leg, now)
			if err != nil {
				return result, err
			}
			if event != nil {
				result = append(result, *event)
			}
		}
	}
	return result, nil
}

func (s *EscalationService) evaluateLeg(ctx context.Context, item *repository.CalculationWithTicket, leg domain.Leg, now time.Time) (*StatusEvent, error) {
	calc := &item.Calculation
	ticket := &item.Ticket

	completed := ticket.ResponseCompleted()
	if leg == domain.LegSolution {
		completed = ticket.SolutionCompleted()
	}
	state := domain.LegState(calc.DueAt(leg), completed, calc.Priority, now)
	if state == domain.LegStatusCompleted || state == domain.LegStatusNoSla {
		return nil, nil
	}

	target := domain.EscalationLevelFor(state)
	stored := calc.EscalationLevel(leg)
	if target <= stored {
		return nil, nil
	}

	won, err := s.calculations.AdvanceEscalation(ctx, calc.ID, leg, stored, target, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another sweep claimed this crossing.
		return nil, nil
	}

	event := &StatusEvent{
		TicketID:      calc.TicketID,
		CalculationID: calc.ID,
		Leg:           leg,
		OldStatus:     domain.StatusForEscalationLevel(stored),
		NewStatus:     state,
		Level:         target,
		DueAt:         calc.DueAt(leg),
		At:            now,
	}
	s.logger.Info("sla escalation",
		zap.String("ticket_id", event.TicketID),
		zap.String("leg", string(leg)),
		zap.String("status", string(state)),
		zap.Int("level", target))
	if s.metrics != nil {
		s.metrics.EscalationsTotal.WithLabelValues(string(leg), string(state)).Inc()
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSlaEscalation,
			TicketID:  calc.TicketID,
			Timestamp: now,
			Payload: events.SlaEscalationPayload{
				CalculationID: calc.ID,
				Leg:           leg,
				OldStatus:     event.OldStatus,
				NewStatus:     state,
				Level:         target,
				DueAt:         calc.DueAt(leg),
			},
		})
	}
	return event, nil
}

func shard(items []repository.CalculationWithTicket, workers int) [][]repository.CalculationWithTicket {
	if len(items) == 0 {
		return nil
	}
	if workers > len(items) {
		workers = len(items)
	}
	chunkSize := (len(items) + workers - 1) / workers
	var chunks [][]repository.CalculationWithTicket
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
