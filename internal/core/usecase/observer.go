package usecase

import (
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
)

// Observer receives controller activity for metrics. Implemented by the
// observability layer; NopObserver keeps tests and minimal wiring quiet.
type Observer interface {
	FrameObserved(kind domain.EventKind)
	JobFinished(outcome domain.JobStatus, elapsed time.Duration)
	SaveObserved(status domain.SaveStatus, elapsed time.Duration)
	StallWarned()
}

type NopObserver struct{}

func (NopObserver) FrameObserved(domain.EventKind)                {}
func (NopObserver) JobFinished(domain.JobStatus, time.Duration)   {}
func (NopObserver) SaveObserved(domain.SaveStatus, time.Duration) {}
func (NopObserver) StallWarned()                                  {}
