package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

// Service records and reads an order's tracking history. Entries are
// append-only: corrections are new entries whose note references the
// corrected fact.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.TrackingEvent, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.TrackingEventType) (bool, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// AppendInput captures the immutable data a tracking event requires.
// OccurredAt may be zero; the append timestamps the entry itself. A nil
// ActorUserID attributes the entry to the system.
type AppendInput struct {
	OrderID       uuid.UUID
	Type          enums.TrackingEventType
	OccurredAt    time.Time
	Latitude      *float64
	Longitude     *float64
	LocationLabel *string
	Notes         *string
	ActorUserID   *uuid.UUID
	EstimatedAt   *time.Time
}

// NewService wires a tracking ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Append persists one tracking event. The event's timestamp is clamped
// forward so it is never earlier than the order's last recorded entry, and
// its position is the next slot in the order's sequence. Callers that hold
// a transaction pass it so the append commits with their status update.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.TrackingEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tracking event type %q", input.Type))
	}

	repo := s.repo.WithTx(tx)

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	position := 1
	last, err := repo.LastByOrderID(ctx, input.OrderID)
	switch {
	case err == gorm.ErrRecordNotFound:
		// first entry for the order
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading last tracking event")
	default:
		position = last.Position + 1
		if occurredAt.Before(last.OccurredAt) {
			occurredAt = last.OccurredAt
		}
	}

	event := &models.TrackingEvent{
		OrderID:       input.OrderID,
		Type:          input.Type,
		Position:      position,
		OccurredAt:    occurredAt,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		LocationLabel: input.LocationLabel,
		Notes:         input.Notes,
		ActorUserID:   input.ActorUserID,
		EstimatedAt:   input.EstimatedAt,
	}
	if err := repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending tracking event")
	}
	return event, nil
}

// History returns the order's tracking events oldest first.
func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading tracking history")
	}
	return events, nil
}

func (s *service) HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.TrackingEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !eventType.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tracking event type %q", eventType))
	}

	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading tracking history")
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}
