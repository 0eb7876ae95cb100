package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
)

const (
	defaultSaveTimeout   = 15 * time.Second
	defaultSavedRevert   = 1500 * time.Millisecond
	defaultErrorRevert   = 3 * time.Second
	bestEffortFlushLimit = 5 * time.Second
)

// SyncConfig tunes the edit synchronizer. Zero values take the defaults.
type SyncConfig struct {
	SaveTimeout time.Duration
	SavedRevert time.Duration
	ErrorRevert time.Duration

	// OnStatus observes every save-status change, including auto-reverts.
	OnStatus func(domain.SaveStatus)
}

// EditSynchronizer pushes the full current row set to the backend cache on
// every user edit. The source fired overlapping unordered saves; here saves
// are serialized with queue depth one: a newer snapshot replaces an unsent
// older one, so at most one request is in flight and completions apply in
// submission order. Local edits are never rolled back on remote failure.
type EditSynchronizer struct {
	backend  ports.Backend
	logger   *slog.Logger
	observer Observer
	cfg      SyncConfig

	mu         sync.Mutex
	status     domain.SaveStatus
	statusGen  int
	pending    []domain.Product
	hasPending bool
	inFlight   bool
	idle       chan struct{}
}

func NewEditSynchronizer(backend ports.Backend, logger *slog.Logger, observer Observer, cfg SyncConfig) *EditSynchronizer {
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	if cfg.SavedRevert <= 0 {
		cfg.SavedRevert = defaultSavedRevert
	}
	if cfg.ErrorRevert <= 0 {
		cfg.ErrorRevert = defaultErrorRevert
	}
	if observer == nil {
		observer = NopObserver{}
	}
	idle := make(chan struct{})
	close(idle)
	return &EditSynchronizer{
		backend:  backend,
		logger:   logger,
		observer: observer,
		cfg:      cfg,
		status:   domain.SaveIdle,
		idle:     idle,
	}
}

func (s *EditSynchronizer) Status() domain.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Enqueue schedules a full-array save of the given snapshot. No debounce: an
// edit always produces a save, but a snapshot still waiting when the next
// edit lands is superseded rather than queued behind it.
func (s *EditSynchronizer) Enqueue(rows []domain.Product) {
	snapshot := make([]domain.Product, len(rows))
	copy(snapshot, rows)

	s.mu.Lock()
	s.pending = snapshot
	s.hasPending = true
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	go s.drain()
}

func (s *EditSynchronizer) drain() {
	for {
		s.mu.Lock()
		if !s.hasPending {
			s.inFlight = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		rows := s.pending
		s.pending = nil
		s.hasPending = false
		s.mu.Unlock()

		s.saveOnce(rows)
	}
}

func (s *EditSynchronizer) saveOnce(rows []domain.Product) {
	s.setStatus(domain.SaveSaving, 0)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := s.backend.SaveEdits(ctx, rows)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error("row save failed, local edits kept", "rows", len(rows), "error", err)
		s.observer.SaveObserved(domain.SaveError, elapsed)
		s.setStatus(domain.SaveError, s.cfg.ErrorRevert)
		return
	}

	s.logger.Debug("rows saved to backend cache", "rows", len(rows), "duration_ms", elapsed.Milliseconds())
	s.observer.SaveObserved(domain.SaveSaved, elapsed)
	s.setStatus(domain.SaveSaved, s.cfg.SavedRevert)
}

// setStatus publishes a status and, when revert is positive, schedules the
// fall back to idle. A newer status change invalidates the scheduled revert.
func (s *EditSynchronizer) setStatus(status domain.SaveStatus, revert time.Duration) {
	s.mu.Lock()
	s.status = status
	s.statusGen++
	gen := s.statusGen
	notify := s.cfg.OnStatus
	s.mu.Unlock()

	if notify != nil {
		notify(status)
	}
	if revert <= 0 {
		return
	}

	time.AfterFunc(revert, func() {
		s.mu.Lock()
		if s.statusGen != gen {
			s.mu.Unlock()
			return
		}
		s.status = domain.SaveIdle
		s.statusGen++
		notify := s.cfg.OnStatus
		s.mu.Unlock()

		if notify != nil {
			notify(domain.SaveIdle)
		}
	})
}

// Flush waits until the pending snapshot (if any) and the in-flight save have
// drained. Used on component teardown.
func (s *EditSynchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BestEffortFlush fires one last save without waiting for the result. Used on
// process teardown where blocking is not acceptable.
func (s *EditSynchronizer) BestEffortFlush(rows []domain.Product) {
	if len(rows) == 0 {
		return
	}
	snapshot := make([]domain.Product, len(rows))
	copy(snapshot, rows)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), bestEffortFlushLimit)
		defer cancel()
		if err := s.backend.SaveEdits(ctx, snapshot); err != nil {
			s.logger.Warn("teardown save failed", "rows", len(snapshot), "error", err)
		}
	}()
}
