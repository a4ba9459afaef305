// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	select {
	case <-channel:
		t.Fatal("After fired before Advance")
	default:
	}

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(1 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d after firing, want 0", clock.PendingCount())
	}
}

func TestFakeClockAfterZeroDuration(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeClockTickerFiresEachInterval(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		clock.Advance(5 * time.Second)
		select {
		case fired := <-ticker.C:
			if want := epoch.Add(time.Duration(i) * 5 * time.Second); !fired.Equal(want) {
				t.Fatalf("tick %d at %v, want %v", i, fired, want)
			}
		default:
			t.Fatalf("tick %d did not fire", i)
		}
	}
}

func TestFakeClockTickerDropsWhenBehind(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	// Three intervals elapse without a reader: only one tick fits.
	clock.Advance(3 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("expected dropped ticks, got a second queued tick")
	default:
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(2 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d after Stop, want 0", clock.PendingCount())
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Minute)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)
	<-done
}

func TestNewTickerPanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}
