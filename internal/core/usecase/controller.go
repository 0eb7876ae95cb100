package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
)

const modelSwitchingFlash = time.Second

// ControllerConfig tunes one controller instance.
type ControllerConfig struct {
	CacheLookup bool
	CacheStore  bool

	// OnLog observes processing-log appends; OnNotice receives non-blocking
	// user-facing notices (transport failures, stall warnings). Both may be
	// nil and both are called outside the controller lock.
	OnLog    func(domain.ProcessingLogEntry)
	OnNotice func(string)
}

// Controller is the job lifecycle state machine: it owns the row arrays, the
// processing log, the model stats and the single active job. User actions and
// decoded stream events drive the phase transitions
// Upload -> Input -> Processing -> Output.
type Controller struct {
	backend  ports.Backend
	history  ports.JobHistory
	notifier ports.Notifier
	interp   *Interpreter
	sync     *EditSynchronizer
	observer Observer
	logger   *slog.Logger
	cfg      ControllerConfig

	mu           sync.Mutex
	phase        domain.Phase
	job          domain.Job
	cancelStream context.CancelFunc
	inputRows    []domain.Product
	outputRows   []domain.Product
	logEntries   []domain.ProcessingLogEntry
	stats        *domain.ModelStats
	progress     ProgressUpdate
	currentModel string
	switching    bool
	switchGen    int
	lastFrameAt  time.Time
	lastErrText  string
	successful   int
	failed       int
	finished     bool
	lastOutcome  domain.JobStatus
	done         chan struct{}
}

func NewController(
	backend ports.Backend,
	history ports.JobHistory,
	notifier ports.Notifier,
	interp *Interpreter,
	editSync *EditSynchronizer,
	observer Observer,
	logger *slog.Logger,
	cfg ControllerConfig,
) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	done := make(chan struct{})
	close(done)
	return &Controller{
		backend:  backend,
		history:  history,
		notifier: notifier,
		interp:   interp,
		sync:     editSync,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
		phase:    domain.PhaseUpload,
		job:      domain.Job{Status: domain.JobIdle},
		stats:    domain.NewModelStats(),
		done:     done,
		finished: true,
	}
}

func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Job() domain.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

func (c *Controller) Stats() (counts map[domain.ProviderKey]int, switches int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot(), c.stats.Switches()
}

func (c *Controller) Progress() ProgressUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Controller) InputRows() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRows(c.inputRows)
}

func (c *Controller) OutputRows() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRows(c.outputRows)
}

func (c *Controller) LogEntries() []domain.ProcessingLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ProcessingLogEntry, len(c.logEntries))
	copy(out, c.logEntries)
	return out
}

func (c *Controller) SaveStatus() domain.SaveStatus {
	return c.sync.Status()
}

// Done reports completion of the active job; closed immediately when no job
// is running.
// LastOutcome is the terminal status of the most recently finished job, or
// "" before the first job completes.
func (c *Controller) LastOutcome() domain.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// LoadBatch installs a new input row set and moves Upload/Input -> Input.
// Rejected while a job is processing.
func (c *Controller) LoadBatch(rows []domain.Product) error {
	if len(rows) == 0 {
		return domain.WrapError(domain.ErrValidation, "load batch", fmt.Errorf("batch has no rows"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == domain.PhaseProcessing {
		return domain.WrapError(domain.ErrJobActive, "load batch", fmt.Errorf("job %s still running", c.job.ID))
	}
	c.inputRows = copyRows(rows)
	c.outputRows = nil
	c.phase = domain.PhaseInput
	c.logger.Info("batch loaded", "rows", len(rows))
	return nil
}

// Submit validates the batch and the model selections, opens the stream and
// transitions Input -> Processing. selections must cover every provider whose
// allowed list is non-empty; providers with an empty allowed list are exempt.
func (c *Controller) Submit(
	ctx context.Context,
	allowed map[domain.ProviderKey][]string,
	selections map[domain.ProviderKey]string,
) error {
	c.mu.Lock()
	if c.phase == domain.PhaseProcessing {
		c.mu.Unlock()
		return domain.WrapError(domain.ErrJobActive, "submit", fmt.Errorf("job %s still running", c.job.ID))
	}
	if len(c.inputRows) == 0 {
		c.mu.Unlock()
		return domain.WrapError(domain.ErrValidation, "submit", fmt.Errorf("no rows loaded"))
	}
	for _, provider := range domain.KnownProviders() {
		if len(allowed[provider]) > 0 && selections[provider] == "" {
			c.mu.Unlock()
			return domain.WrapError(domain.ErrValidation, "submit",
				fmt.Errorf("provider %s has allowed models but no selection", provider))
		}
	}

	overrides := make(map[domain.ProviderKey]string, len(selections))
	for provider, model := range selections {
		if model != "" {
			overrides[provider] = model
		}
	}
	req := ports.SubmitRequest{
		Rows:           copyRows(c.inputRows),
		CacheLookup:    c.cfg.CacheLookup,
		CacheStore:     c.cfg.CacheStore,
		ModelOverrides: overrides,
	}

	// Prior log, output and stats belong to the previous job.
	c.logEntries = nil
	c.outputRows = nil
	c.stats.Reset()
	c.progress = ProgressUpdate{}
	c.currentModel = ""
	c.lastErrText = ""
	c.successful = 0
	c.failed = 0
	c.job = domain.Job{Status: domain.JobRunning, StartedAt: time.Now().UTC()}
	c.phase = domain.PhaseProcessing
	c.finished = false
	c.done = make(chan struct{})
	c.lastFrameAt = time.Now()

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelStream = cancel
	c.mu.Unlock()

	frames, err := c.backend.Submit(streamCtx, req)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.phase = domain.PhaseInput
		c.job = domain.Job{Status: domain.JobIdle}
		c.cancelStream = nil
		c.finished = true
		close(c.done)
		c.mu.Unlock()
		return domain.WrapError(domain.ErrTransport, "submit", err)
	}

	c.logger.Info("classification job submitted", "rows", len(req.Rows))
	c.publishJobEvent("job.started", "")
	go c.consume(frames)
	return nil
}

// consume drains the stream in arrival order. Channel close without a prior
// terminal event means the transport dropped: the last error frame, if any,
// becomes the terminal failure.
func (c *Controller) consume(frames <-chan ports.StreamFrame) {
	for frame := range frames {
		c.apply(frame)
	}

	c.mu.Lock()
	alreadyFinished := c.finished
	errText := c.lastErrText
	c.mu.Unlock()
	if alreadyFinished {
		return
	}
	if errText == "" {
		errText = "stream closed before a terminal event"
	}
	c.finish(domain.JobFailed, errText)
}

func (c *Controller) apply(frame ports.StreamFrame) {
	c.observer.FrameObserved(frame.Event.Kind)

	if frame.Err != nil {
		c.mu.Lock()
		c.lastFrameAt = time.Now()
		c.lastErrText = frame.Err.Error()
		entry := c.appendLogLocked(domain.LogError, frame.Err.Error())
		c.mu.Unlock()
		c.emitLog(entry)
		c.logger.Warn("stream frame error", "error", frame.Err)
		return
	}

	update := c.interp.Interpret(frame.Event)

	c.mu.Lock()
	if c.finished {
		// Late frames after stop() raced a server stopped event; terminal
		// convergence is idempotent.
		c.mu.Unlock()
		return
	}
	c.lastFrameAt = time.Now()

	if update.JobID != "" && c.job.ID == "" {
		c.job.ID = update.JobID
		c.logger.Info("job id assigned", "job_id", update.JobID)
	}
	if update.Progress != nil {
		c.progress = *update.Progress
	}
	if update.CurrentModel != "" {
		c.currentModel = update.CurrentModel
	}
	if update.ModelSwitching {
		c.flashSwitchingLocked()
	}
	if update.SuccessMatched {
		c.stats.RecordSuccess(update.SuccessProvider)
	}
	if update.SwitchObserved {
		c.stats.RecordSwitch()
	}
	if update.ServerStats != nil {
		c.stats.MergeServer(update.ServerStats)
	}
	if update.ErrText != "" {
		c.lastErrText = update.ErrText
	}
	if update.HasFinalRows {
		c.successful = update.Successful
		c.failed = update.Failed
	}

	entries := make([]domain.ProcessingLogEntry, 0, len(update.Log))
	for _, line := range update.Log {
		entries = append(entries, c.appendLogLocked(line.Category, line.Text))
	}
	finalRows := update.FinalRows
	terminal := update.Terminal
	c.mu.Unlock()

	for _, entry := range entries {
		c.emitLog(entry)
	}

	switch terminal {
	case domain.JobDone:
		c.mu.Lock()
		c.outputRows = copyRows(finalRows)
		c.mu.Unlock()
		c.finish(domain.JobDone, "")
	case domain.JobStopped:
		c.finish(domain.JobStopped, "")
	}
}

// finish performs the terminal transition exactly once per job: Done ->
// Output, Stopped -> Input, Failed -> Input with the error surfaced. Clears
// the job id and the cancellation token, records history and publishes the
// lifecycle notification, both best effort.
func (c *Controller) finish(outcome domain.JobStatus, errText string) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true

	job := c.job
	elapsed := time.Since(job.StartedAt)
	summary := domain.JobSummary{
		JobID:       job.ID,
		Outcome:     outcome,
		Successful:  c.successful,
		Failed:      c.failed,
		Elapsed:     elapsed,
		ProviderUse: c.stats.Snapshot(),
		Switches:    c.stats.Switches(),
		FinishedAt:  time.Now().UTC(),
	}
	if c.successful > 0 {
		summary.AvgPerProduct = elapsed / time.Duration(c.successful)
	}

	if cancel := c.cancelStream; cancel != nil {
		cancel()
	}
	c.cancelStream = nil
	c.job = domain.Job{Status: domain.JobIdle}
	c.lastOutcome = outcome

	switch outcome {
	case domain.JobDone:
		c.phase = domain.PhaseOutput
	default:
		c.phase = domain.PhaseInput
	}
	close(c.done)
	c.mu.Unlock()

	c.observer.JobFinished(outcome, elapsed)
	c.logger.Info("job finished",
		"job_id", job.ID,
		"outcome", string(outcome),
		"successful", summary.Successful,
		"failed", summary.Failed,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	if errText != "" {
		c.notice("classification failed: " + errText)
	}

	if c.history != nil {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.history.RecordSummary(recordCtx, summary); err != nil {
			c.logger.Warn("job history write failed", "job_id", job.ID, "error", err)
		}
	}
	c.publishJobEventCounts("job."+string(outcome), job.ID, summary.Successful, summary.Failed)
}

// Reset clears all rows and results and returns to Upload. Only valid from
// Output.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseOutput {
		return domain.WrapError(domain.ErrValidation, "reset",
			fmt.Errorf("reset only allowed from output, current phase %s", c.phase))
	}
	c.inputRows = nil
	c.outputRows = nil
	c.logEntries = nil
	c.progress = ProgressUpdate{}
	c.phase = domain.PhaseUpload
	return nil
}

func (c *Controller) flashSwitchingLocked() {
	c.switching = true
	c.switchGen++
	gen := c.switchGen
	time.AfterFunc(modelSwitchingFlash, func() {
		c.mu.Lock()
		if c.switchGen == gen {
			c.switching = false
		}
		c.mu.Unlock()
	})
}

func (c *Controller) ModelSwitching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switching
}

func (c *Controller) appendLogLocked(category domain.LogCategory, text string) domain.ProcessingLogEntry {
	entry := domain.ProcessingLogEntry{
		Ordinal:  len(c.logEntries),
		Category: category,
		Text:     text,
	}
	c.logEntries = append(c.logEntries, entry)
	return entry
}

func (c *Controller) emitLog(entry domain.ProcessingLogEntry) {
	if c.cfg.OnLog != nil {
		c.cfg.OnLog(entry)
	}
}

func (c *Controller) notice(text string) {
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(text)
	}
}

func (c *Controller) publishJobEvent(kind, jobID string) {
	c.publishJobEventCounts(kind, jobID, 0, 0)
}

func (c *Controller) publishJobEventCounts(kind, jobID string, successful, failed int) {
	if c.notifier == nil {
		return
	}
	event := ports.JobEvent{
		ID:         uuid.NewString(),
		JobID:      jobID,
		Kind:       kind,
		Successful: successful,
		Failed:     failed,
		At:         time.Now().UTC(),
	}
	publishCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.notifier.PublishJobEvent(publishCtx, event); err != nil {
		c.logger.Warn("lifecycle notification failed", "kind", kind, "error", err)
	}
}

func copyRows(rows []domain.Product) []domain.Product {
	if rows == nil {
		return nil
	}
	out := make([]domain.Product, len(rows))
	copy(out, rows)
	return out
}
