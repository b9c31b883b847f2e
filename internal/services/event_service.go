package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/internal/metrics"
	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure EventServiceImpl implements EventService
var _ EventService = (*EventServiceImpl)(nil)

// EventServiceImpl implements event ingress: deduplication on the
// producer-supplied event id, then fan-out to the progress ledger.
type EventServiceImpl struct {
	eventRepo       repositories.EventRepository
	progressService ProgressService
}

// NewEventService creates a new EventServiceImpl
func NewEventService(eventRepo repositories.EventRepository, progressService ProgressService) *EventServiceImpl {
	return &EventServiceImpl{
		eventRepo:       eventRepo,
		progressService: progressService,
	}
}

// Ingest applies one quantified behavior event.
func (s *EventServiceImpl) Ingest(ctx context.Context, event models.RewardEvent) (*models.IngestResult, error) {
	if event.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", models.ErrInvalidEvent)
	}
	if !event.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", models.ErrInvalidEvent, event.Source)
	}
	if event.EventID == "" {
		return nil, fmt.Errorf("%w: eventId is required", models.ErrInvalidEvent)
	}
	if event.Quantity == 0 {
		event.Quantity = 1
	}
	if event.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", models.ErrInvalidEvent, event.Quantity)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	fresh, err := s.eventRepo.MarkSeen(ctx, event.EventID, event.Timestamp)
	if err != nil {
		metrics.RecordEventIngested(string(event.Source), "error")
		return nil, fmt.Errorf("failed to check event id: %w", err)
	}
	if !fresh {
		slog.Debug("Duplicate event dropped", "eventId", event.EventID, "userId", event.UserID, "source", event.Source)
		metrics.RecordEventIngested(string(event.Source), "duplicate")
		return &models.IngestResult{Duplicate: true, Updated: []*models.Progress{}}, nil
	}

	updated, err := s.progressService.ApplyEvent(ctx, event.UserID, event.Source, event.Quantity, event.Timestamp)
	if err != nil {
		// Release the id so the producer's redelivery is applied
		// instead of dropped as a duplicate.
		if forgetErr := s.eventRepo.Forget(ctx, event.EventID); forgetErr != nil {
			slog.Error("Failed to release event id after apply failure", "error", forgetErr, "eventId", event.EventID)
		}
		metrics.RecordEventIngested(string(event.Source), "error")
		return nil, err
	}
	metrics.RecordEventIngested(string(event.Source), "applied")
	return &models.IngestResult{Updated: updated}, nil
}
