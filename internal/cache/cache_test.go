package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/marketbrief/internal/models"
)

func report(date string) *models.DailyReport {
	return &models.DailyReport{TradingDate: date, SummaryText: "summary for " + date}
}

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute, 10)

	c.Set("2026-08-25", report("2026-08-25"))

	got, ok := c.Get("2026-08-25")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.TradingDate != "2026-08-25" {
		t.Errorf("expected trading date 2026-08-25, got %s", got.TradingDate)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(time.Minute, 10)

	if _, ok := c.Get("2026-08-25"); ok {
		t.Error("expected cache miss for unknown date")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10*time.Millisecond, 10)

	c.Set("2026-08-25", report("2026-08-25"))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("2026-08-25"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := New(time.Minute, 10)

	c.Set("2026-08-25", report("2026-08-25"))
	c.Invalidate("2026-08-25")

	if _, ok := c.Get("2026-08-25"); ok {
		t.Error("expected invalidated entry to miss")
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)

	for i := 0; i < 3; i++ {
		date := fmt.Sprintf("2026-08-%02d", i+1)
		c.Set(date, report(date))
	}

	// Fourth insert should evict the first
	c.Set("2026-08-04", report("2026-08-04"))

	if _, ok := c.Get("2026-08-01"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("2026-08-04"); !ok {
		t.Error("expected newest entry to be present")
	}
	if _, ok := c.Get("2026-08-02"); !ok {
		t.Error("expected second entry to survive eviction")
	}
}

func TestCacheUpdateInPlaceDoesNotEvict(t *testing.T) {
	c := New(time.Minute, 2)

	c.Set("2026-08-01", report("2026-08-01"))
	c.Set("2026-08-02", report("2026-08-02"))

	// Re-set an existing key at capacity: nothing should be evicted
	updated := report("2026-08-02")
	updated.SummaryText = "updated"
	c.Set("2026-08-02", updated)

	if _, ok := c.Get("2026-08-01"); !ok {
		t.Error("expected existing entry to survive in-place update")
	}
	got, ok := c.Get("2026-08-02")
	if !ok {
		t.Fatal("expected updated entry to be present")
	}
	if got.SummaryText != "updated" {
		t.Errorf("expected updated summary, got %q", got.SummaryText)
	}
}
