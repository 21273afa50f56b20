package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newTestStore(now *time.Time) *MemoryStore {
	s := &MemoryStore{
		entries: map[string]entry{},
		nowFunc: func() time.Time { return *now },
		stop:    make(chan struct{}),
	}
	return s
}

func TestAllowWithinBudget(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(newTestStore(&now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "client-a", 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected within budget", i+1)
		}
		if d.Remaining != 3-(i+1) {
			t.Fatalf("request %d: remaining = %d", i+1, d.Remaining)
		}
	}

	d, err := l.Allow(ctx, "client-a", 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("fourth request allowed over a budget of 3")
	}
	if want := now.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Fatalf("resetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestWindowResets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(newTestStore(&now))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, "client-a", 3, time.Minute)
	}

	now = now.Add(61 * time.Second)
	d, err := l.Allow(ctx, "client-a", 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Fatalf("window did not reset: %+v", d)
	}
}

func TestClientsCountedSeparately(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(newTestStore(&now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, "client-a", 3, time.Minute)
	}
	d, err := l.Allow(ctx, "client-b", 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("client-b throttled by client-a's traffic")
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)

	s.Incr(context.Background(), "stale", time.Minute)
	s.Incr(context.Background(), "fresh", time.Hour)

	now = now.Add(2 * time.Minute)
	s.cleanup()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries["stale"]; ok {
		t.Fatal("expired window survived cleanup")
	}
	if _, ok := s.entries["fresh"]; !ok {
		t.Fatal("live window removed by cleanup")
	}
}

func TestIncrConcurrent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Incr(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := s.Incr(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 51 {
		t.Fatalf("count = %d, want 51", count)
	}
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(newTestStore(&now))

	r := gin.New()
	r.POST("/payment/create", Middleware(l, 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(ua string) int {
		req := httptest.NewRequest(http.MethodPost, "/payment/create", nil)
		req.Header.Set("User-Agent", ua)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("app/1.0"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := do("app/1.0"); code != http.StatusOK {
		t.Fatalf("second request: %d", code)
	}
	if code := do("app/1.0"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", code)
	}

	// a different User-Agent from the same IP is a different client
	if code := do("app/2.0"); code != http.StatusOK {
		t.Fatalf("distinct client throttled: %d", code)
	}
}

func TestClientIDUsesForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	c.Request.Header.Set("User-Agent", "app/1.0")

	if got := ClientID(c); got != "203.0.113.7|app/1.0" {
		t.Fatalf("ClientID = %q", got)
	}
}
