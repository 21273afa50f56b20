package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/andriansah/go-qris-payflow/internal/dynamock"
)

func newTestStore() *Store {
	db := dynamock.New().AddTable("vouchers", "code")
	return NewStore(db, "vouchers")
}

func TestStoreGetNormalizesCode(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	v := activeVoucher()
	if err := s.Put(ctx, v); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "  diskon50 ")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Code != "DISKON50" {
		t.Fatalf("unexpected voucher: %+v", got)
	}
	if got.DiscountValue != 50 || got.MaxDiscount != 5000 {
		t.Fatalf("fields lost in round trip: %+v", got)
	}

	missing, err := s.Get(ctx, "NOPE")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown code")
	}
}

func TestStoreIncrementUsed(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	v := activeVoucher()
	v.ValidFrom = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.ValidUntil = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if err := s.Put(ctx, v); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := s.IncrementUsed(ctx, "DISKON50"); err != nil {
			t.Fatalf("IncrementUsed: %v", err)
		}
	}

	got, err := s.Get(ctx, "DISKON50")
	if err != nil {
		t.Fatal(err)
	}
	if got.UsedCount != 2 {
		t.Fatalf("used_count = %d, want 2", got.UsedCount)
	}
	// only used_count may change
	if got.DiscountValue != 50 || !got.IsActive {
		t.Fatalf("unrelated fields mutated: %+v", got)
	}
}
