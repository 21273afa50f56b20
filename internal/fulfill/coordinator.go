// Package fulfill owns the only code path that moves an order from pending to
// paid and binds a credential to it. Coordination happens through the
// persisted lock field, because concurrent processes may be checking the same
// order at once.
package fulfill

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
	"github.com/andriansah/go-qris-payflow/internal/credential"
	"github.com/andriansah/go-qris-payflow/internal/order"
)

// ErrOrderNotFound reports an unknown order id.
var ErrOrderNotFound = errors.New("fulfill: order not found")

// OrderStore is the slice of the orders store the coordinator needs.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*order.Order, error)
	AcquireLock(ctx context.Context, orderID, owner string) (bool, error)
	ReleaseLock(ctx context.Context, orderID, owner string) error
	MarkPaid(ctx context.Context, orderID, owner, credentialID, transactionRef string, paidAt time.Time) error
	UpdateStatus(ctx context.Context, orderID, expected, newStatus string) error
	IncrementAttempts(ctx context.Context, orderID string) error
}

// CredentialPool claims sellable credentials.
type CredentialPool interface {
	ClaimOldestAvailable(ctx context.Context, orderID, usedBy string) (*credential.Credential, error)
}

// Notifier publishes fulfillment events downstream. Best-effort only.
type Notifier interface {
	Publish(ctx context.Context, ev awsx.FulfillmentEvent) error
}

// Alerter raises operator-facing alerts. Best-effort only.
type Alerter interface {
	CredentialStockOut(ctx context.Context, orderID string) error
	FeedUnavailable(ctx context.Context, orderID string) error
}

// Outcome is the result of one fulfillment attempt.
type Outcome struct {
	Status       string
	CredentialID string
	PaidAt       time.Time
	// Contended: another attempt holds the lock; the caller just retries.
	Contended bool
	// StockOut: payment confirmed but the pool is empty; order stays
	// pending and retryable.
	StockOut bool
}

// Coordinator performs the guarded pending->paid transition.
type Coordinator struct {
	orders   OrderStore
	pool     CredentialPool
	notifier Notifier
	alerter  Alerter
	log      *zap.Logger
	nowFunc  func() time.Time
	ownerFn  func() string
}

// NewCoordinator wires a Coordinator.
func NewCoordinator(orders OrderStore, pool CredentialPool, notifier Notifier, alerter Alerter, log *zap.Logger) *Coordinator {
	return &Coordinator{
		orders:   orders,
		pool:     pool,
		notifier: notifier,
		alerter:  alerter,
		log:      log,
		nowFunc:  time.Now,
		ownerFn:  uuid.NewString,
	}
}

// TryFulfill attempts the paid transition for an order whose payment has been
// positively confirmed (transactionRef identifies the matched credit).
//
// Exactly one concurrent caller wins the lock; losers observe a pending
// outcome and retry on their next poll. A paid order is terminal: repeat
// calls are side-effect-free and return the already-bound credential.
func (c *Coordinator) TryFulfill(ctx context.Context, orderID, transactionRef string) (Outcome, error) {
	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return Outcome{}, err
	}
	if o == nil {
		return Outcome{}, ErrOrderNotFound
	}

	switch o.Status {
	case order.StatusPaid:
		return Outcome{Status: order.StatusPaid, CredentialID: o.CredentialID, PaidAt: o.PaidAt}, nil
	case order.StatusExpired, order.StatusCancelled:
		return Outcome{Status: o.Status}, nil
	}

	owner := c.ownerFn()
	acquired, err := c.orders.AcquireLock(ctx, orderID, owner)
	if err != nil {
		return Outcome{}, err
	}
	if !acquired {
		// Someone else is inside the critical section, or the order just
		// left pending. Either way: report pending, let the poll retry.
		o2, err := c.orders.Get(ctx, orderID)
		if err == nil && o2 != nil && o2.Status == order.StatusPaid {
			return Outcome{Status: order.StatusPaid, CredentialID: o2.CredentialID, PaidAt: o2.PaidAt}, nil
		}
		c.log.Info("order locked by another attempt", zap.String("order_id", orderID))
		return Outcome{Status: order.StatusPending, Contended: true}, nil
	}

	usedBy := o.CustomerEmail
	if usedBy == "" {
		usedBy = o.CustomerPhone
	}
	if usedBy == "" {
		usedBy = "unknown"
	}

	cred, err := c.pool.ClaimOldestAvailable(ctx, orderID, usedBy)
	if err != nil {
		c.releaseLock(ctx, orderID, owner)
		if errors.Is(err, credential.ErrNoneAvailable) {
			c.log.Error("credential stock-out on confirmed payment",
				zap.String("order_id", orderID))
			if alertErr := c.alerter.CredentialStockOut(ctx, orderID); alertErr != nil {
				c.log.Warn("stock-out alert failed", zap.Error(alertErr))
			}
			return Outcome{Status: order.StatusPending, StockOut: true}, nil
		}
		return Outcome{Status: order.StatusPending}, err
	}

	paidAt := c.nowFunc().UTC()
	if err := c.orders.MarkPaid(ctx, orderID, owner, cred.CredentialID, transactionRef, paidAt); err != nil {
		// The credential is marked used but the order could not be
		// finalized; only an admin reset can return it to the pool.
		c.log.Error("mark paid failed after credential claim",
			zap.String("order_id", orderID),
			zap.String("credential_id", cred.CredentialID),
			zap.Error(err))
		c.releaseLock(ctx, orderID, owner)
		return Outcome{Status: order.StatusPending}, err
	}

	c.log.Info("order fulfilled",
		zap.String("order_id", orderID),
		zap.String("credential_id", cred.CredentialID),
		zap.String("transaction_ref", transactionRef))

	ev := awsx.FulfillmentEvent{
		OrderID:         orderID,
		Status:          order.StatusPaid,
		BaseAmount:      o.BaseAmount,
		UniqueAmount:    o.UniqueAmount,
		VoucherCode:     o.VoucherCode,
		VoucherDiscount: o.VoucherDiscount,
		CredentialID:    cred.CredentialID,
		CustomerEmail:   o.CustomerEmail,
		PaidAt:          paidAt,
	}
	if err := c.notifier.Publish(ctx, ev); err != nil {
		// the order state is already durable; notification is not retried
		c.log.Warn("fulfillment notification failed",
			zap.String("order_id", orderID),
			zap.Error(err))
	}

	return Outcome{Status: order.StatusPaid, CredentialID: cred.CredentialID, PaidAt: paidAt}, nil
}

func (c *Coordinator) releaseLock(ctx context.Context, orderID, owner string) {
	if err := c.orders.ReleaseLock(ctx, orderID, owner); err != nil {
		c.log.Error("lock release failed",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}
