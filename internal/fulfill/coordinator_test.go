package fulfill

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
	"github.com/andriansah/go-qris-payflow/internal/credential"
	"github.com/andriansah/go-qris-payflow/internal/dynamock"
	"github.com/andriansah/go-qris-payflow/internal/order"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []awsx.FulfillmentEvent
}

func (n *recordingNotifier) Publish(ctx context.Context, ev awsx.FulfillmentEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type recordingAlerter struct {
	mu        sync.Mutex
	stockOuts []string
	feedDown  []string
}

func (a *recordingAlerter) CredentialStockOut(ctx context.Context, orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stockOuts = append(a.stockOuts, orderID)
	return nil
}

func (a *recordingAlerter) FeedUnavailable(ctx context.Context, orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feedDown = append(a.feedDown, orderID)
	return nil
}

type fixture struct {
	orders      *order.Store
	credentials *credential.Store
	notifier    *recordingNotifier
	alerter     *recordingAlerter
	coordinator *Coordinator
	db          *dynamock.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dynamock.New().
		AddTable("orders", "order_id").
		AddTable("credentials", "credential_id")

	f := &fixture{
		orders:      order.NewStore(db, "orders"),
		credentials: credential.NewStore(db, "credentials"),
		notifier:    &recordingNotifier{},
		alerter:     &recordingAlerter{},
		db:          db,
	}
	f.coordinator = NewCoordinator(f.orders, f.credentials, f.notifier, f.alerter, zap.NewNop())
	return f
}

func (f *fixture) seedOrder(t *testing.T, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := f.orders.Create(context.Background(), &order.Order{
		OrderID:       id,
		BaseAmount:    20000,
		FinalAmount:   15000,
		UniqueAmount:  15060,
		Status:        order.StatusPending,
		CustomerEmail: "buyer@mail.test",
		ExpiresAt:     now.Add(10 * time.Minute),
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func (f *fixture) seedCredential(t *testing.T, id string, createdAt time.Time) {
	t.Helper()
	err := f.credentials.Put(context.Background(), &credential.Credential{
		CredentialID: id,
		Email:        id + "@mail.test",
		Password:     "secret",
		Status:       credential.StatusAvailable,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("seed credential: %v", err)
	}
}

func TestTryFulfillHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORDER-1")
	f.seedCredential(t, "cred-1", time.Now().UTC())

	out, err := f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatalf("TryFulfill: %v", err)
	}
	if out.Status != order.StatusPaid || out.CredentialID != "cred-1" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	o, _ := f.orders.Get(ctx, "ORDER-1")
	if o.Status != order.StatusPaid || o.CredentialID != "cred-1" || o.TransactionRef != "tx-42" || o.Locked {
		t.Fatalf("order not finalized: %+v", o)
	}

	c, _ := f.credentials.Get(ctx, "cred-1")
	if c.Status != credential.StatusUsed || c.OrderID != "ORDER-1" || c.UsedBy != "buyer@mail.test" {
		t.Fatalf("credential not claimed: %+v", c)
	}

	if f.notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", f.notifier.count())
	}
}

func TestTryFulfillIdempotentOnPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORDER-1")
	f.seedCredential(t, "cred-1", time.Now().UTC())
	f.seedCredential(t, "cred-2", time.Now().UTC().Add(time.Minute))

	first, err := f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatal(err)
	}

	if first.CredentialID != second.CredentialID {
		t.Fatalf("idempotence broken: %s then %s", first.CredentialID, second.CredentialID)
	}
	if second.Status != order.StatusPaid {
		t.Fatalf("second call status = %s", second.Status)
	}

	// the spare credential must remain untouched
	spare, _ := f.credentials.Get(ctx, "cred-2")
	if spare.Status != credential.StatusAvailable {
		t.Fatalf("second credential claimed: %+v", spare)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notification duplicated: %d", f.notifier.count())
	}
}

func TestTryFulfillStockOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORDER-1")

	out, err := f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatalf("stock-out must not be an error: %v", err)
	}
	if out.Status != order.StatusPending || !out.StockOut {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(f.alerter.stockOuts) != 1 || f.alerter.stockOuts[0] != "ORDER-1" {
		t.Fatalf("operator alert missing: %+v", f.alerter.stockOuts)
	}

	// lock must be released so a later attempt can succeed after restock
	o, _ := f.orders.Get(ctx, "ORDER-1")
	if o.Locked {
		t.Fatal("lock leaked on stock-out")
	}

	f.seedCredential(t, "cred-late", time.Now().UTC())
	out, err = f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != order.StatusPaid || out.CredentialID != "cred-late" {
		t.Fatalf("retry after restock failed: %+v", out)
	}
}

func TestTryFulfillLockExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORDER-1")
	f.seedCredential(t, "cred-1", time.Now().UTC())

	const callers = 6
	outs := make([]Outcome, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
		}(i)
	}
	wg.Wait()

	paidWithCred := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		switch outs[i].Status {
		case order.StatusPaid:
			if outs[i].CredentialID != "cred-1" {
				t.Fatalf("caller %d: paid with wrong credential %q", i, outs[i].CredentialID)
			}
			paidWithCred++
		case order.StatusPending:
			// lost the race, fine
		default:
			t.Fatalf("caller %d: unexpected status %s", i, outs[i].Status)
		}
	}
	if paidWithCred == 0 {
		t.Fatal("no caller completed fulfillment")
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notification sent %d times, want exactly 1", f.notifier.count())
	}

	o, _ := f.orders.Get(ctx, "ORDER-1")
	if o.Status != order.StatusPaid || o.CredentialID != "cred-1" {
		t.Fatalf("final order state wrong: %+v", o)
	}
}

func TestTryFulfillUnknownOrder(t *testing.T) {
	f := newFixture(t)
	if _, err := f.coordinator.TryFulfill(context.Background(), "ORDER-ghost", "tx"); err != ErrOrderNotFound {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestTryFulfillTerminalStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORDER-1")
	f.seedCredential(t, "cred-1", time.Now().UTC())

	if err := f.orders.UpdateStatus(ctx, "ORDER-1", order.StatusPending, order.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	out, err := f.coordinator.TryFulfill(ctx, "ORDER-1", "tx-42")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != order.StatusCancelled {
		t.Fatalf("cancelled order transitioned: %+v", out)
	}
	c, _ := f.credentials.Get(ctx, "cred-1")
	if c.Status != credential.StatusAvailable {
		t.Fatal("credential claimed for cancelled order")
	}
}
