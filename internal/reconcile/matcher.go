// Package reconcile decides whether a specific order has been paid by
// correlating the external mutation feed with the order's unique amount.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/feed"
	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/payment"
)

// FeedSource is the one operation the matcher needs from the feed.
type FeedSource interface {
	ListRecentInbound(ctx context.Context) ([]feed.Transaction, error)
}

// Decision is the matcher's verdict for one order.
type Decision struct {
	Paid bool
	// Transaction is set when Paid, pointing at the credit that satisfied
	// the amount predicate.
	Transaction *feed.Transaction
	// Degraded means the feed could not be consulted; the caller reports
	// the last stored state and retries later.
	Degraded bool
}

// Matcher runs the amount-matching policy against a feed source. It is a pure
// query layer: no order state is written here.
type Matcher struct {
	source FeedSource
	log    *zap.Logger
}

// NewMatcher returns a Matcher over source.
func NewMatcher(source FeedSource, log *zap.Logger) *Matcher {
	return &Matcher{source: source, log: log}
}

// CheckOrder fetches the current feed snapshot and decides paid or pending.
// Feed unavailability degrades to pending; it is never an error to the caller
// and never a payment confirmation.
func (m *Matcher) CheckOrder(ctx context.Context, o *order.Order) Decision {
	txs, err := m.source.ListRecentInbound(ctx)
	if err != nil {
		m.log.Warn("reconciliation degraded, reporting stored state",
			zap.String("order_id", o.OrderID),
			zap.Error(err))
		return Decision{Degraded: true}
	}

	if tx := Match(txs, o.UniqueAmount); tx != nil {
		m.log.Info("payment matched",
			zap.String("order_id", o.OrderID),
			zap.String("transaction_id", tx.ID),
			zap.Int64("amount", o.UniqueAmount))
		return Decision{Paid: true, Transaction: tx}
	}
	return Decision{}
}

// Match returns the first transaction whose normalized credit equals
// uniqueAmount and whose direction flag marks an inbound credit, in feed
// order. Several transactions can satisfy the predicate when surcharges
// collide; this takes the first and does not disambiguate further, a known
// limitation of the amount-only matching scheme.
func Match(txs []feed.Transaction, uniqueAmount int64) *feed.Transaction {
	for i := range txs {
		tx := &txs[i]
		if tx.Status != feed.DirectionIn {
			continue
		}
		amount, err := payment.ParseAmount(tx.Credit)
		if err != nil {
			continue
		}
		if amount == uniqueAmount {
			return tx
		}
	}
	return nil
}
