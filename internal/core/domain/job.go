package domain

import "time"

// Phase is the operator-visible lifecycle of the console: no rows loaded,
// rows loaded and editable, job running, results available.
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseInput      Phase = "input"
	PhaseProcessing Phase = "processing"
	PhaseOutput     Phase = "output"
)

type JobStatus string

const (
	JobIdle     JobStatus = "idle"
	JobRunning  JobStatus = "running"
	JobStopping JobStatus = "stopping"
	JobDone     JobStatus = "done"
	JobStopped  JobStatus = "stopped"
	JobFailed   JobStatus = "failed"
)

// Job is one submitted classification batch. The id is assigned by the
// backend and arrives asynchronously after the submission handshake, so it
// may be empty while the job is already running. At most one Job is active
// at a time.
type Job struct {
	ID        string    `json:"id,omitempty"`
	Status    JobStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// JobSummary holds the aggregate stats finalized on a terminal event.
type JobSummary struct {
	JobID         string              `json:"job_id,omitempty"`
	Outcome       JobStatus           `json:"outcome"`
	Successful    int                 `json:"successful"`
	Failed        int                 `json:"failed"`
	Elapsed       time.Duration       `json:"elapsed"`
	AvgPerProduct time.Duration       `json:"avg_per_product"`
	ProviderUse   map[ProviderKey]int `json:"provider_use,omitempty"`
	Switches      int                 `json:"switches"`
	FinishedAt    time.Time           `json:"finished_at"`
}
