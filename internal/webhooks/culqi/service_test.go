package culqiwebhook

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/encamino/encamino-backend/pkg/culqi"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

type fakeStore struct {
	keys map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "en:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type fakeReconciler struct {
	calls []string
	err   error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, chargeID, action string) error {
	f.calls = append(f.calls, chargeID+":"+action)
	return f.err
}

func newTestService(t *testing.T, reconciler *fakeReconciler) (*Service, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "culqi")
	if err != nil {
		t.Fatalf("guard error: %v", err)
	}
	log := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Payments: reconciler, Guard: guard, Logger: log})
	if err != nil {
		t.Fatalf("service error: %v", err)
	}
	return svc, store
}

func webhookBody(chargeID, action string) []byte {
	return []byte(`{"object":"Charge","data":{"object":{"id":"` + chargeID + `","action":"` + action + `"}}}`)
}

func TestHandleEventReconciles(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, _ := newTestService(t, reconciler)

	body := webhookBody("chr_hook_001", culqi.ActionChargeSucceeded)
	if err := svc.HandleEvent(context.Background(), body); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if len(reconciler.calls) != 1 || reconciler.calls[0] != "chr_hook_001:charge.succeeded" {
		t.Fatalf("unexpected reconcile calls %v", reconciler.calls)
	}
}

func TestHandleEventDuplicateDropped(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, _ := newTestService(t, reconciler)

	body := webhookBody("chr_hook_002", culqi.ActionChargeSucceeded)
	for i := 0; i < 3; i++ {
		if err := svc.HandleEvent(context.Background(), body); err != nil {
			t.Fatalf("handle %d error: %v", i, err)
		}
	}
	if len(reconciler.calls) != 1 {
		t.Fatalf("expected one reconcile, got %d", len(reconciler.calls))
	}
}

func TestHandleEventDistinctActionsBothProcessed(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, _ := newTestService(t, reconciler)

	if err := svc.HandleEvent(context.Background(), webhookBody("chr_hook_003", culqi.ActionChargeSucceeded)); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), webhookBody("chr_hook_003", culqi.ActionChargeRejected)); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if len(reconciler.calls) != 2 {
		t.Fatalf("expected two reconciles, got %d", len(reconciler.calls))
	}
}

func TestHandleEventFailureUnmarks(t *testing.T) {
	reconciler := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	svc, _ := newTestService(t, reconciler)

	body := webhookBody("chr_hook_004", culqi.ActionChargeSucceeded)
	if err := svc.HandleEvent(context.Background(), body); err == nil {
		t.Fatal("expected error")
	}

	// retry after the failure reprocesses instead of being dropped
	reconciler.err = nil
	if err := svc.HandleEvent(context.Background(), body); err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if len(reconciler.calls) != 2 {
		t.Fatalf("expected two reconcile attempts, got %d", len(reconciler.calls))
	}
}

func TestHandleEventMalformedBody(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, _ := newTestService(t, reconciler)

	err := svc.HandleEvent(context.Background(), []byte(`{"object":"Refund"}`))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(reconciler.calls) != 0 {
		t.Fatal("expected no reconcile for malformed body")
	}
}
