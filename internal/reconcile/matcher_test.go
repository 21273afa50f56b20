package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/feed"
	"github.com/andriansah/go-qris-payflow/internal/order"
)

type stubFeed struct {
	txs []feed.Transaction
	err error
}

func (s *stubFeed) ListRecentInbound(ctx context.Context) ([]feed.Transaction, error) {
	return s.txs, s.err
}

func testOrder(uniqueAmount int64) *order.Order {
	return &order.Order{
		OrderID:      "ORDER-1",
		UniqueAmount: uniqueAmount,
		Status:       order.StatusPending,
		ExpiresAt:    time.Now().Add(10 * time.Minute),
	}
}

func TestMatchExactAmountInbound(t *testing.T) {
	txs := []feed.Transaction{
		{ID: "tx-1", Credit: "15.010", Status: "IN"},
		{ID: "tx-2", Credit: "15.060", Status: "IN"},
	}
	got := Match(txs, 15060)
	if got == nil || got.ID != "tx-2" {
		t.Fatalf("Match = %+v, want tx-2", got)
	}
}

func TestMatchIgnoresOutbound(t *testing.T) {
	txs := []feed.Transaction{
		{ID: "tx-1", Credit: "15.060", Status: "OUT"},
		{ID: "tx-2", Credit: "15.060", Status: "REVERSED"},
	}
	if got := Match(txs, 15060); got != nil {
		t.Fatalf("matched a non-inbound transaction: %+v", got)
	}
}

func TestMatchFirstWinsOnCollision(t *testing.T) {
	txs := []feed.Transaction{
		{ID: "tx-early", Credit: "15.060", Status: "IN"},
		{ID: "tx-late", Credit: "15.060", Status: "IN"},
	}
	got := Match(txs, 15060)
	if got == nil || got.ID != "tx-early" {
		t.Fatalf("first-match policy violated: %+v", got)
	}
}

func TestMatchSkipsMalformedAmounts(t *testing.T) {
	txs := []feed.Transaction{
		{ID: "tx-bad", Credit: "??", Status: "IN"},
		{ID: "tx-ok", Credit: "15.060", Status: "IN"},
	}
	got := Match(txs, 15060)
	if got == nil || got.ID != "tx-ok" {
		t.Fatalf("Match = %+v, want tx-ok", got)
	}
}

func TestMatchNoExactAmount(t *testing.T) {
	txs := []feed.Transaction{
		{ID: "tx-1", Credit: "15.059", Status: "IN"},
		{ID: "tx-2", Credit: "15.061", Status: "IN"},
	}
	if got := Match(txs, 15060); got != nil {
		t.Fatalf("near-miss amount matched: %+v", got)
	}
}

func TestCheckOrderPaid(t *testing.T) {
	m := NewMatcher(&stubFeed{txs: []feed.Transaction{
		{ID: "tx-1", Credit: "15.060", Status: "IN"},
	}}, zap.NewNop())

	d := m.CheckOrder(context.Background(), testOrder(15060))
	if !d.Paid || d.Degraded {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Transaction == nil || d.Transaction.ID != "tx-1" {
		t.Fatalf("matched transaction missing: %+v", d)
	}
}

func TestCheckOrderPending(t *testing.T) {
	m := NewMatcher(&stubFeed{}, zap.NewNop())
	d := m.CheckOrder(context.Background(), testOrder(15060))
	if d.Paid || d.Degraded {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestCheckOrderDegradesOnFeedFailure(t *testing.T) {
	m := NewMatcher(&stubFeed{err: errors.New("boom")}, zap.NewNop())
	d := m.CheckOrder(context.Background(), testOrder(15060))
	if d.Paid {
		t.Fatal("feed failure must never confirm payment")
	}
	if !d.Degraded {
		t.Fatal("expected degraded decision")
	}
}
