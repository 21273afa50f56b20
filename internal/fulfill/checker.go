package fulfill

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/reconcile"
)

// Matcher is the reconciliation decision the checker consults.
type Matcher interface {
	CheckOrder(ctx context.Context, o *order.Order) reconcile.Decision
}

// CheckResult is what a status poll reports back to the client.
type CheckResult struct {
	OrderID string
	Status  string
	Amount  int64
	PaidAt  time.Time
}

// Checker drives one "is this paid?" pass: expiry first, then reconciliation,
// then the guarded fulfillment. Both the client poll loop and the manual
// check button funnel through here, as does the scheduled sweeper.
type Checker struct {
	orders      OrderStore
	matcher     Matcher
	coordinator *Coordinator
	alerter     Alerter
	log         *zap.Logger
	nowFunc     func() time.Time
}

// NewChecker wires a Checker.
func NewChecker(orders OrderStore, matcher Matcher, coordinator *Coordinator, alerter Alerter, log *zap.Logger) *Checker {
	return &Checker{
		orders:      orders,
		matcher:     matcher,
		coordinator: coordinator,
		alerter:     alerter,
		log:         log,
		nowFunc:     time.Now,
	}
}

// CheckOrder reports the order's current status, fulfilling it when the feed
// confirms payment. Degradations always fall back to the stored state; the
// only error surfaced is ErrOrderNotFound.
func (c *Checker) CheckOrder(ctx context.Context, orderID string) (CheckResult, error) {
	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.log.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return CheckResult{}, err
	}
	if o == nil {
		return CheckResult{}, ErrOrderNotFound
	}

	res := CheckResult{OrderID: o.OrderID, Status: o.Status, Amount: o.UniqueAmount, PaidAt: o.PaidAt}

	if o.Status != order.StatusPending {
		return res, nil
	}

	if o.Expired(c.nowFunc()) {
		// abandoned; flip the stored status so later reads agree
		if err := c.orders.UpdateStatus(ctx, orderID, order.StatusPending, order.StatusExpired); err != nil && !errors.Is(err, order.ErrStatusMismatch) {
			c.log.Warn("expiry transition failed", zap.String("order_id", orderID), zap.Error(err))
		}
		res.Status = order.StatusExpired
		return res, nil
	}

	if err := c.orders.IncrementAttempts(ctx, orderID); err != nil {
		c.log.Warn("attempt counter update failed", zap.String("order_id", orderID), zap.Error(err))
	}

	decision := c.matcher.CheckOrder(ctx, o)
	if decision.Degraded {
		if alertErr := c.alerter.FeedUnavailable(ctx, orderID); alertErr != nil {
			c.log.Warn("feed alert failed", zap.Error(alertErr))
		}
		return res, nil
	}
	if !decision.Paid {
		return res, nil
	}

	outcome, err := c.coordinator.TryFulfill(ctx, orderID, decision.Transaction.ID)
	if err != nil {
		// positive match but the transition could not complete; stay
		// pending, the next poll retries
		c.log.Error("fulfillment attempt failed", zap.String("order_id", orderID), zap.Error(err))
		return res, nil
	}

	res.Status = outcome.Status
	res.PaidAt = outcome.PaidAt
	return res, nil
}
