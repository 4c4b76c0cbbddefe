package lock

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/encamino/encamino-backend/pkg/config"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/redis"
)

const orderScope = "order"

// ErrNotAcquired is returned when the lock stays contended past the wait budget.
var ErrNotAcquired = pkgerrors.New(pkgerrors.CodeConflict, "order is being modified by another request")

// OrderLock serializes state mutations per order using a Redis SETNX lease.
type OrderLock struct {
	store redis.LockStore
	cfg   config.LockConfig
}

// Handle identifies one acquired lease; release requires the same token.
type Handle struct {
	key   string
	token string
}

func NewOrderLock(store redis.LockStore, cfg config.LockConfig) (*OrderLock, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lock store is required")
	}
	if cfg.TTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lock ttl must be positive")
	}
	return &OrderLock{store: store, cfg: cfg}, nil
}

// Acquire takes the per-order lease, retrying with jittered backoff until
// MaxWait elapses. Callers must Release with the returned handle.
func (l *OrderLock) Acquire(ctx context.Context, orderID uuid.UUID) (*Handle, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	key := l.store.LockKey(orderScope, orderID.String())
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(l.cfg.RetryJitter),
		backoff.WithMaxInterval(l.cfg.TTL/4),
		backoff.WithMaxElapsedTime(l.cfg.MaxWait),
	)

	operation := func() error {
		acquired, err := l.store.SetNX(ctx, key, token, l.cfg.TTL)
		if err != nil {
			return backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring order lock"))
		}
		if !acquired {
			return ErrNotAcquired
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return &Handle{key: key, token: token}, nil
}

// Release gives the lease back. A lease that already expired is not an error.
func (l *OrderLock) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	if _, err := l.store.ReleaseIfHeld(ctx, h.key, h.token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing order lock")
	}
	return nil
}

// WithOrderLock runs fn while holding the order lease.
func (l *OrderLock) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	handle, err := l.Acquire(ctx, orderID)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.Release(releaseCtx, handle)
	}()
	return fn(ctx)
}
