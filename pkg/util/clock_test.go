package util

import (
	"testing"
	"time"
)

func TestSimClockAdvance(t *testing.T) {
	c := NewSimClock(1_000_000)

	if got := c.Unix(); got != 1_000_000 {
		t.Fatalf("start time = %d, want 1000000", got)
	}

	c.Advance(90 * time.Second)
	if got := c.Unix(); got != 1_000_090 {
		t.Errorf("after advance = %d, want 1000090", got)
	}

	// Sub-second advances round down to whole seconds
	c.Advance(500 * time.Millisecond)
	if got := c.Unix(); got != 1_000_090 {
		t.Errorf("sub-second advance moved time: %d", got)
	}
}

func TestSimClockSetTime(t *testing.T) {
	c := NewSimClock(500)

	if err := c.SetTime(1000); err != nil {
		t.Fatalf("SetTime forward failed: %v", err)
	}
	if got := c.Unix(); got != 1000 {
		t.Errorf("time = %d, want 1000", got)
	}

	// Rewinding is rejected
	if err := c.SetTime(999); err == nil {
		t.Error("expected error when setting time backwards")
	}

	// Setting to the same instant is allowed
	if err := c.SetTime(1000); err != nil {
		t.Errorf("SetTime to current failed: %v", err)
	}
}

func TestSimClockRestore(t *testing.T) {
	c := NewSimClock(2000)
	c.Advance(100 * time.Second)

	// Restore may rewind (snapshot revert path)
	c.Restore(2000)
	if got := c.Unix(); got != 2000 {
		t.Errorf("restored time = %d, want 2000", got)
	}
}

func TestSimClockAfterFiresImmediately(t *testing.T) {
	c := NewSimClock(3000)

	select {
	case ts := <-c.After(time.Hour):
		if ts.Unix() != 3000 {
			t.Errorf("After fired with %d, want 3000", ts.Unix())
		}
	case <-time.After(time.Second):
		t.Fatal("After did not fire immediately")
	}
}
