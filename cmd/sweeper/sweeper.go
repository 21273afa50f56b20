package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/fulfill"
	"github.com/andriansah/go-qris-payflow/internal/order"
)

type orderLister interface {
	ListPending(ctx context.Context) ([]order.Order, error)
}

type orderChecker interface {
	CheckOrder(ctx context.Context, orderID string) (fulfill.CheckResult, error)
}

// Report tallies one sweep over the pending orders.
type Report struct {
	Scanned int
	Paid    int
	Expired int
	Pending int
	Failed  int
}

// Sweeper runs the scheduled reconciliation pass. Buyers who close the
// payment page never poll again; this catches their payments and expires
// abandoned orders.
type Sweeper struct {
	orders  orderLister
	checker orderChecker
	log     *zap.Logger
}

// NewSweeper wires a Sweeper.
func NewSweeper(orders orderLister, checker orderChecker, log *zap.Logger) *Sweeper {
	return &Sweeper{orders: orders, checker: checker, log: log}
}

// Sweep checks every pending order once. Individual failures are logged and
// counted, never fatal: one stuck order must not stall the rest.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	pending, err := s.orders.ListPending(ctx)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Scanned: len(pending)}
	for i := range pending {
		id := pending[i].OrderID
		res, err := s.checker.CheckOrder(ctx, id)
		if err != nil {
			s.log.Error("sweep check", zap.String("order_id", id), zap.Error(err))
			rep.Failed++
			continue
		}
		switch res.Status {
		case order.StatusPaid:
			rep.Paid++
		case order.StatusExpired:
			rep.Expired++
		default:
			rep.Pending++
		}
	}

	s.log.Info("sweep complete",
		zap.Int("scanned", rep.Scanned),
		zap.Int("paid", rep.Paid),
		zap.Int("expired", rep.Expired),
		zap.Int("pending", rep.Pending),
		zap.Int("failed", rep.Failed))
	return rep, nil
}
