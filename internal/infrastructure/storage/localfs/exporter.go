package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
)

// Exporter writes final classified rows to a local JSON artifact, one file
// per finished job.
type Exporter struct {
	basePath string
	now      func() time.Time
}

func New(basePath string) (*Exporter, error) {
	if basePath == "" {
		basePath = "./data/results"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Exporter{basePath: basePath, now: time.Now}, nil
}

type exportArtifact struct {
	JobID      string           `json:"job_id,omitempty"`
	ExportedAt time.Time        `json:"exported_at"`
	Rows       []domain.Product `json:"rows"`
}

// ExportResults writes rows to results-<job>-<stamp>.json and returns the
// artifact path. Written via a temp file and rename so a crash never leaves
// a truncated artifact behind.
func (e *Exporter) ExportResults(_ context.Context, jobID string, rows []domain.Product) (string, error) {
	name := jobID
	if name == "" {
		name = "untracked"
	}
	stamp := e.now().UTC().Format("20060102T150405")
	path := filepath.Join(e.basePath, fmt.Sprintf("results-%s-%s.json", name, stamp))

	data, err := json.MarshalIndent(exportArtifact{
		JobID:      jobID,
		ExportedAt: e.now().UTC(),
		Rows:       rows,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write results file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publish results file: %w", err)
	}
	return path, nil
}
