package ports

import (
	"context"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
)

// SubmitRequest carries one batch submission to the classification backend.
type SubmitRequest struct {
	Rows           []domain.Product
	CacheLookup    bool
	CacheStore     bool
	ModelOverrides map[domain.ProviderKey]string
}

// StreamFrame is one delivery from the progress stream: either a decoded
// event or a transport error. The channel closing means the connection is
// gone; a frame with Err set immediately before the close is a terminal
// transport failure, anything earlier is a per-frame glitch.
type StreamFrame struct {
	Event domain.ProgressEvent
	Err   error
}

// Backend is the classification service consumed as a black box.
type Backend interface {
	// Submit opens the streaming submission. Frames arrive in order on the
	// returned channel; canceling ctx aborts the local read side. The job id
	// arrives inside the first init frame, not from this call.
	Submit(ctx context.Context, req SubmitRequest) (<-chan StreamFrame, error)

	// Stop asks the backend to cooperatively halt server-side work. Best
	// effort: callers log failures and move on.
	Stop(ctx context.Context, jobID string) error

	// SaveEdits replaces the server-side cached row set with the full current
	// array. Idempotent.
	SaveEdits(ctx context.Context, rows []domain.Product) error

	// AllowedModels returns the ordered allowed identifiers per provider. An
	// absent or empty list disables that provider.
	AllowedModels(ctx context.Context) (map[domain.ProviderKey][]string, error)
}

// PreferencesStore is the explicit home for state the source kept in ambient
// client storage: per-provider model selections and the crawler hand-off
// batch with its 24h freshness window.
type PreferencesStore interface {
	ModelSelection(ctx context.Context, provider domain.ProviderKey) (string, error)
	SetModelSelection(ctx context.Context, provider domain.ProviderKey, model string) error
	ClearModelSelection(ctx context.Context, provider domain.ProviderKey) error

	// StoreHandoff saves a crawler-sourced batch for later consumption.
	StoreHandoff(ctx context.Context, rows []domain.Product) error
	// TakeHandoff returns a fresh hand-off batch and clears it, or nil when
	// none is stored. A payload past its freshness window counts as absent
	// and is cleared.
	TakeHandoff(ctx context.Context) ([]domain.Product, error)
}

// JobHistory records terminal job outcomes.
type JobHistory interface {
	RecordSummary(ctx context.Context, summary domain.JobSummary) error
}

// JobEvent is a lifecycle notification envelope for downstream consumers.
type JobEvent struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id,omitempty"`
	Kind       string    `json:"kind"`
	Successful int       `json:"successful,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier publishes lifecycle notifications. Best effort, same policy as
// the stop notification: failures are logged, never block a transition.
type Notifier interface {
	PublishJobEvent(ctx context.Context, event JobEvent) error
}

// BatchLoader reads an operator-supplied batch file into rows.
type BatchLoader interface {
	Load(ctx context.Context, path string) ([]domain.Product, error)
}

// ResultExporter writes the final classified rows to a local artifact.
type ResultExporter interface {
	ExportResults(ctx context.Context, jobID string, rows []domain.Product) (string, error)
}
