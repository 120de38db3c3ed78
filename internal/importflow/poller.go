package importflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-ledger/internal/features/importjob"
)

// ErrInvalidJobNumber is returned by Start when the job number is not a
// positive identifier.
var ErrInvalidJobNumber = errors.New("job number must be a positive integer")

const (
	// DefaultPollInterval is the gap between status fetches.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxWait bounds how long a poller watches a job that never
	// reaches a terminal status before giving up with a warning.
	DefaultMaxWait = 30 * time.Minute
)

// JobPoller observes a single import job until it reaches a terminal status,
// applying the refresh and notification side effects exactly once no matter
// how fetch responses interleave.
type JobPoller struct {
	api       API
	refresher Refresher
	notifier  Notifier
	logger    *zap.Logger

	interval time.Duration
	maxWait  time.Duration

	mu           sync.Mutex
	jobNumber    int
	latest       *importjob.ImportJob
	rowErrors    []importjob.ImportError
	stopped      bool
	hasRefreshed bool
	hasNotified  bool
	errorsListed bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PollerOption customizes a JobPoller.
type PollerOption func(*JobPoller)

// WithPollInterval overrides the fetch interval.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *JobPoller) { p.interval = d }
}

// WithMaxWait overrides how long the poller waits for a terminal status.
// Zero disables the bound.
func WithMaxWait(d time.Duration) PollerOption {
	return func(p *JobPoller) { p.maxWait = d }
}

func NewJobPoller(api API, refresher Refresher, notifier Notifier, logger *zap.Logger, opts ...PollerOption) *JobPoller {
	p := &JobPoller{
		api:       api,
		refresher: refresher,
		notifier:  notifier,
		logger:    logger,
		interval:  DefaultPollInterval,
		maxWait:   DefaultMaxWait,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins observing jobNumber: one immediate fetch, then recurring
// fetches every interval until a terminal status is seen, Stop is called, or
// the max wait elapses. Start returns immediately; fetches run in the
// background.
func (p *JobPoller) Start(ctx context.Context, jobNumber int) error {
	if jobNumber <= 0 {
		return ErrInvalidJobNumber
	}

	p.mu.Lock()
	p.jobNumber = jobNumber
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

// Stop cancels the recurring fetches. Idempotent; safe after natural
// termination. A fetch already in flight completes but its result is
// discarded.
func (p *JobPoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Done is closed once the poll loop has exited. On natural termination the
// terminal side effects, error-list fetch included, complete first, so
// RowErrors is safe to read as soon as Done fires.
func (p *JobPoller) Done() <-chan struct{} {
	return p.doneCh
}

// Job returns the most recently fetched snapshot, or nil before the first
// successful fetch.
func (p *JobPoller) Job() *importjob.ImportJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// RowErrors returns the per-row rejection list fetched after a terminal
// status with failures, or nil when no rows were rejected.
func (p *JobPoller) RowErrors() []importjob.ImportError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rowErrors
}

func (p *JobPoller) run(ctx context.Context) {
	defer close(p.doneCh)

	var expired <-chan time.Time
	if p.maxWait > 0 {
		deadline := time.NewTimer(p.maxWait)
		defer deadline.Stop()
		expired = deadline.C
	}

	// Immediate first fetch, then the ticker. Each tick launches its own
	// fetch so a slow response never delays the schedule; overlapping
	// responses are serialized in apply.
	go p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go p.poll(ctx)
		case <-expired:
			p.expire()
			return
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.Stop()
			return
		}
	}
}

func (p *JobPoller) poll(ctx context.Context) {
	p.mu.Lock()
	jobNumber := p.jobNumber
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}

	job, err := p.api.GetJob(ctx, jobNumber)
	if err != nil {
		p.logger.Warn("job status fetch failed",
			zap.Int("job_number", jobNumber),
			zap.Error(err))
		return
	}

	p.apply(ctx, job)
}

// apply folds one fetched snapshot into the poller's state. Results arriving
// after Stop are discarded, and the one-shot flags keep overlapping terminal
// responses from repeating side effects.
func (p *JobPoller) apply(ctx context.Context, job *importjob.ImportJob) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.latest = job

	if !job.Status.Terminal() {
		p.mu.Unlock()
		return
	}

	refresh := false
	notify := func() {}

	if !p.hasNotified {
		p.hasNotified = true
		switch {
		case job.Status == importjob.ImportStatusCompleted && job.FailedRecords > 0:
			msg := fmt.Sprintf("import finished with errors: %d rows imported, %d rows rejected",
				job.SuccessfulRecords, job.FailedRecords)
			notify = func() { p.notifier.Warning(msg) }
			refresh = job.SuccessfulRecords > 0
		case job.Status == importjob.ImportStatusCompleted:
			msg := fmt.Sprintf("import finished: %d rows imported", job.SuccessfulRecords)
			notify = func() { p.notifier.Success(msg) }
			refresh = job.SuccessfulRecords > 0
		default:
			msg := job.ErrorMessage
			if msg == "" {
				msg = "import failed"
			}
			notify = func() { p.notifier.Danger(msg) }
		}
	}

	if refresh && p.hasRefreshed {
		refresh = false
	}
	if refresh {
		p.hasRefreshed = true
	}

	fetchErrors := false
	if (job.FailedRecords > 0 || job.Status != importjob.ImportStatusCompleted) && !p.errorsListed {
		p.errorsListed = true
		fetchErrors = true
	}

	p.stopped = true
	p.mu.Unlock()

	// stopCh closes only after the side effects have landed, so Done()
	// readers observe the refresh, the notification and the error list.
	defer p.stopOnce.Do(func() { close(p.stopCh) })

	if refresh {
		p.refresher.Refresh()
	}
	notify()

	if fetchErrors {
		rowErrors, err := p.api.ListJobErrors(ctx, job.JobNumber)
		if err != nil {
			p.logger.Warn("job error list fetch failed",
				zap.Int("job_number", job.JobNumber),
				zap.Error(err))
			return
		}
		p.mu.Lock()
		p.rowErrors = rowErrors
		p.mu.Unlock()
	}
}

func (p *JobPoller) expire() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	jobNumber := p.jobNumber
	notify := !p.hasNotified
	p.hasNotified = true
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stopCh) })

	p.logger.Warn("gave up waiting for job to finish",
		zap.Int("job_number", jobNumber),
		zap.Duration("max_wait", p.maxWait))
	if notify {
		p.notifier.Warning(fmt.Sprintf("import job %d is still running; check back later", jobNumber))
	}
}
