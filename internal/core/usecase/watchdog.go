package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
)

// Watchdog surfaces a stall warning when the stream goes silent while a job
// is processing. It only warns, since the stream has no timeout and the
// operator decides whether to cancel. One warning per silence period: a new
// frame re-arms it.
type Watchdog struct {
	controller *Controller
	window     time.Duration
	logger     *slog.Logger
	observer   Observer

	lastWarned time.Time
}

func NewWatchdog(controller *Controller, window time.Duration, logger *slog.Logger, observer Observer) *Watchdog {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Watchdog{
		controller: controller,
		window:     window,
		logger:     logger,
		observer:   observer,
	}
}

// Run blocks until ctx is done. A window of zero disables the watchdog.
func (w *Watchdog) Run(ctx context.Context) {
	if w.window <= 0 {
		<-ctx.Done()
		return
	}

	interval := w.window / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watchdog) check() {
	phase, lastFrame := w.controller.stallState()
	if phase != domain.PhaseProcessing {
		return
	}
	if time.Since(lastFrame) < w.window {
		return
	}
	if !w.lastWarned.Before(lastFrame) {
		// Already warned for this silence period.
		return
	}

	w.lastWarned = time.Now()
	w.observer.StallWarned()
	w.logger.Warn("stream stalled", "silent_for", time.Since(lastFrame).Round(time.Second).String())
	w.controller.notice("no progress from the classifier for a while; the job can be stopped")
}

func (c *Controller) stallState() (domain.Phase, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.lastFrameAt
}
