package usecase

import (
	"context"
	"time"

	"github.com/okulov/classify-console/internal/core/domain"
)

const stopNotifyTimeout = 5 * time.Second

// Stop cancels the active job. Three steps, in order: flip the running state
// optimistically so callers see stopping intent at once, abort the local read
// side of the stream (always succeeds), then best-effort notify the backend
// to cooperatively halt server-side work. The notification is skipped and
// logged when no job id has arrived yet, and its failure never blocks the
// return to Input. A server stopped frame arriving after the local abort is
// absorbed by the idempotent terminal transition.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.phase != domain.PhaseProcessing || c.finished {
		c.mu.Unlock()
		return
	}
	c.job.Status = domain.JobStopping
	jobID := c.job.ID
	cancel := c.cancelStream
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	switch {
	case jobID == "":
		c.logger.Info("stop requested before job id arrived, backend notification skipped")
	default:
		go c.notifyStop(jobID)
	}

	c.finish(domain.JobStopped, "")
}

// notifyStop is fire-and-forget: the local abort already stopped UI updates,
// so a failed notification costs only wasted server work.
func (c *Controller) notifyStop(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), stopNotifyTimeout)
	defer cancel()
	if err := c.backend.Stop(ctx, jobID); err != nil {
		c.logger.Warn("backend stop notification failed", "job_id", jobID, "error", err)
		return
	}
	c.logger.Info("backend acknowledged stop", "job_id", jobID)
}
