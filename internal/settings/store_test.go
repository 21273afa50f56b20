package settings

import (
	"context"
	"testing"

	"github.com/andriansah/go-qris-payflow/internal/dynamock"
)

func TestGetDefaults(t *testing.T) {
	db := dynamock.New().AddTable("settings", "key")
	s := NewStore(db, "settings")
	ctx := context.Background()

	got, err := s.Get(ctx, BasePriceKey, "20000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "20000" {
		t.Fatalf("default not returned: %q", got)
	}

	n, err := s.GetInt64(ctx, BasePriceKey, 20000)
	if err != nil || n != 20000 {
		t.Fatalf("GetInt64 default: %d, %v", n, err)
	}
}

func TestGetStoredValue(t *testing.T) {
	db := dynamock.New().AddTable("settings", "key")
	s := NewStore(db, "settings")
	ctx := context.Background()

	if err := s.Put(ctx, BasePriceKey, "25000"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, err := s.GetInt64(ctx, BasePriceKey, 20000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 25000 {
		t.Fatalf("GetInt64 = %d, want 25000", n)
	}
}

func TestGetInt64Malformed(t *testing.T) {
	db := dynamock.New().AddTable("settings", "key")
	s := NewStore(db, "settings")
	ctx := context.Background()

	if err := s.Put(ctx, BasePriceKey, "not-a-number"); err != nil {
		t.Fatal(err)
	}
	n, err := s.GetInt64(ctx, BasePriceKey, 20000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 20000 {
		t.Fatalf("malformed value should fall back to default, got %d", n)
	}
}
