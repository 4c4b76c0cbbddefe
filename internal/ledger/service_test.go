package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/encamino/encamino-backend/pkg/db/models"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

type fakeRepository struct {
	events   []models.TrackingEvent
	createFn func(ctx context.Context, event *models.TrackingEvent) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.TrackingEvent) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, event); err != nil {
			return err
		}
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	var out []models.TrackingEvent
	for _, e := range f.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepository) LastByOrderID(ctx context.Context, orderID uuid.UUID) (*models.TrackingEvent, error) {
	var last *models.TrackingEvent
	for i := range f.events {
		if f.events[i].OrderID != orderID {
			continue
		}
		if last == nil || f.events[i].Position > last.Position {
			last = &f.events[i]
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return last, nil
}

func TestService_AppendAssignsPositions(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	first, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID: orderID,
		Type:    enums.TrackingEventCreated,
	})
	if err != nil {
		t.Fatalf("append error: %v", err)
	}
	if first.Position != 1 {
		t.Fatalf("expected first position 1, got %d", first.Position)
	}
	if first.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to default to now")
	}

	second, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID: orderID,
		Type:    enums.TrackingEventPaymentConfirmed,
	})
	if err != nil {
		t.Fatalf("append error: %v", err)
	}
	if second.Position != 2 {
		t.Fatalf("expected second position 2, got %d", second.Position)
	}
}

func TestService_AppendClampsEarlierTimestamps(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if _, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID:    orderID,
		Type:       enums.TrackingEventCreated,
		OccurredAt: base,
	}); err != nil {
		t.Fatalf("append error: %v", err)
	}

	stale, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID:    orderID,
		Type:       enums.TrackingEventInTransit,
		OccurredAt: base.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("append error: %v", err)
	}
	if !stale.OccurredAt.Equal(base) {
		t.Fatalf("expected stale timestamp clamped to %v, got %v", base, stale.OccurredAt)
	}
	if stale.Position != 2 {
		t.Fatalf("clamped entry should still advance position, got %d", stale.Position)
	}
}

func TestService_AppendValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Append(context.Background(), nil, AppendInput{
		Type: enums.TrackingEventCreated,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing order id, got %v", err)
	}

	if _, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID: uuid.New(),
		Type:    enums.TrackingEventType("teleported"),
	}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad event type, got %v", err)
	}
}

func TestService_AppendRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, event *models.TrackingEvent) error {
		return expectedErr
	}

	if _, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID: uuid.New(),
		Type:    enums.TrackingEventCreated,
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_HasEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	if _, err := svc.Append(context.Background(), nil, AppendInput{
		OrderID: orderID,
		Type:    enums.TrackingEventCreated,
	}); err != nil {
		t.Fatalf("append error: %v", err)
	}

	got, err := svc.HasEvent(context.Background(), orderID, enums.TrackingEventCreated)
	if err != nil {
		t.Fatalf("has event error: %v", err)
	}
	if !got {
		t.Fatalf("expected created event to be found")
	}

	got, err = svc.HasEvent(context.Background(), orderID, enums.TrackingEventDelivered)
	if err != nil {
		t.Fatalf("has event error: %v", err)
	}
	if got {
		t.Fatalf("did not expect delivered event")
	}
}
