package util

import (
	"testing"
	"time"
)

func TestNewTimeIDIsUniqueForSameInstant(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewTimeID(now)
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %s after %d calls", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestNewTimeIDNeverGoesBackwards(t *testing.T) {
	first := NewTimeID(time.UnixMilli(1_900_000_000_000))
	second := NewTimeID(time.UnixMilli(1_800_000_000_000))
	if second <= first {
		t.Fatalf("expected %s to sort after %s", second, first)
	}
}

func TestToday(t *testing.T) {
	got := Today(time.Date(2024, time.January, 5, 23, 59, 0, 0, time.UTC))
	if got != "2024-01-05" {
		t.Fatalf("Today() = %q", got)
	}
}
