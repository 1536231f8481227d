package clock

import (
	"testing"
	"time"
)

func TestSystemTracksWallClock(t *testing.T) {
	before := time.Now().UnixMilli()
	got := System{}.NowMillis()
	after := time.Now().UnixMilli()
	if got < before || got > after {
		t.Fatalf("expected %d within [%d, %d]", got, before, after)
	}
}

func TestManualSetAndAdvance(t *testing.T) {
	c := NewManual(1000)
	if got := c.NowMillis(); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
	if got := c.Advance(time.Minute); got != 61_000 {
		t.Fatalf("expected 61000, got %d", got)
	}
	c.Set(5)
	if got := c.NowMillis(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}
