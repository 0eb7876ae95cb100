package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
)

type stallCounter struct {
	NopObserver
	mu    sync.Mutex
	count int
}

func (s *stallCounter) StallWarned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

func (s *stallCounter) warned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestWatchdogWarnsOncePerSilencePeriod(t *testing.T) {
	fix := newControllerFixture(t)
	submitBatch(t, fix)

	counter := &stallCounter{}
	watchdog := NewWatchdog(fix.ctrl, 50*time.Millisecond, quietLogger(), counter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchdog.Run(ctx)

	deadline := time.After(2 * time.Second)
	for counter.warned() == 0 {
		select {
		case <-deadline:
			t.Fatal("watchdog never warned for a silent stream")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Continued silence must not produce a second warning, even across
	// further watchdog ticks.
	time.Sleep(1300 * time.Millisecond)
	if got := counter.warned(); got != 1 {
		t.Fatalf("watchdog warned %d times for one silence period", got)
	}

	notices := fix.noticeTexts()
	if len(notices) == 0 || !strings.Contains(notices[0], "no progress") {
		t.Fatalf("stall notice missing: %v", notices)
	}

	close(fix.backend.frames)
	waitDone(t, fix)
}

func TestWatchdogRearmsAfterNewFrame(t *testing.T) {
	fix := newControllerFixture(t)
	submitBatch(t, fix)

	counter := &stallCounter{}
	watchdog := NewWatchdog(fix.ctrl, 50*time.Millisecond, quietLogger(), counter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchdog.Run(ctx)

	deadline := time.After(2 * time.Second)
	for counter.warned() == 0 {
		select {
		case <-deadline:
			t.Fatal("watchdog never warned")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A new frame re-arms the watchdog; the next silence warns again.
	fix.backend.frames <- ports.StreamFrame{Event: domain.ProgressEvent{Kind: domain.EventProgress, Current: 1, Total: 2}}

	deadline = time.After(3 * time.Second)
	for counter.warned() < 2 {
		select {
		case <-deadline:
			t.Fatal("watchdog did not re-arm after a new frame")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(fix.backend.frames)
	waitDone(t, fix)
}

func TestWatchdogSilentOutsideProcessing(t *testing.T) {
	fix := newControllerFixture(t)

	counter := &stallCounter{}
	watchdog := NewWatchdog(fix.ctrl, 20*time.Millisecond, quietLogger(), counter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchdog.Run(ctx)

	// Long enough to cover at least one watchdog tick.
	time.Sleep(1200 * time.Millisecond)
	if got := counter.warned(); got != 0 {
		t.Fatalf("watchdog warned %d times with no job running", got)
	}
}
