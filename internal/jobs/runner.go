package jobs

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/local/pageforge/internal/store"
    "github.com/rs/zerolog/log"
)

// Fn is the body of a background job. It reports progress through
// report (0-100) and must honour ctx cancellation.
type Fn func(ctx context.Context, report func(progress int, message string)) (result string, err error)

type job struct {
    id     string
    kind   string
    fn     Fn
    ctx    context.Context
    cancel context.CancelFunc
}

type Config struct {
    Concurrency int
}

// Runner executes assembly jobs on a fixed pool of workers and keeps
// their status in a StatusStore.
type Runner struct {
    cfg     Config
    status  store.StatusStore
    queue   chan *job
    stop    chan struct{}
    wg      sync.WaitGroup

    mu      sync.Mutex
    active  map[string]*job
    results map[string]string
}

func New(cfg Config, status store.StatusStore) *Runner {
    if cfg.Concurrency <= 0 { cfg.Concurrency = 2 }
    return &Runner{
        cfg:     cfg,
        status:  status,
        queue:   make(chan *job, 64),
        stop:    make(chan struct{}),
        active:  map[string]*job{},
        results: map[string]string{},
    }
}

func (r *Runner) Start() {
    for i := 0; i < r.cfg.Concurrency; i++ {
        r.wg.Add(1)
        go r.loop(i)
    }
}

// Stop cancels running jobs and waits for workers to drain, or until
// ctx expires. Jobs still sitting in the queue are marked cancelled so
// they do not stay queued forever.
func (r *Runner) Stop(ctx context.Context) error {
    close(r.stop)
    r.mu.Lock()
    for _, j := range r.active {
        j.cancel()
    }
    r.mu.Unlock()

drain:
    for {
        select {
        case j := <-r.queue:
            r.finish(j, store.StatusCancelled, "runner stopped", "")
        default:
            break drain
        }
    }

    done := make(chan struct{})
    go func() { r.wg.Wait(); close(done) }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

// Submit enqueues fn and returns the job ID immediately.
func (r *Runner) Submit(kind string, fn Fn) string {
    id := uuid.NewString()
    jctx, cancel := context.WithCancel(context.Background())
    j := &job{id: id, kind: kind, fn: fn, ctx: jctx, cancel: cancel}

    now := time.Now()
    _ = r.status.Set(context.Background(), id, store.Status{
        Status: store.StatusQueued,
        Start:  &now,
        Metadata: map[string]interface{}{"kind": kind},
    })

    r.mu.Lock()
    r.active[id] = j
    r.mu.Unlock()

    select {
    case r.queue <- j:
    case <-r.stop:
        r.finish(j, store.StatusCancelled, "runner stopped", "")
    }
    return id
}

// Cancel requests cancellation of a queued or running job.
func (r *Runner) Cancel(jobID string) bool {
    r.mu.Lock()
    j, ok := r.active[jobID]
    r.mu.Unlock()
    if !ok { return false }
    j.cancel()
    return true
}

// Status returns the stored status of a job.
func (r *Runner) Status(ctx context.Context, jobID string) (store.Status, bool, error) {
    return r.status.Get(ctx, jobID)
}

// Result returns the result path of a completed job.
func (r *Runner) Result(jobID string) (string, bool) {
    r.mu.Lock()
    res, ok := r.results[jobID]
    r.mu.Unlock()
    return res, ok
}

func (r *Runner) loop(id int) {
    defer r.wg.Done()
    log.Info().Int("worker", id).Msg("assembly worker started")
    for {
        select {
        case <-r.stop:
            log.Info().Int("worker", id).Msg("assembly worker stopped")
            return
        case j := <-r.queue:
            r.run(j)
        }
    }
}

func (r *Runner) run(j *job) {
    ctx := j.ctx
    defer j.cancel()
    if ctx.Err() != nil {
        r.finish(j, store.StatusCancelled, "cancelled before start", "")
        return
    }

    _ = r.status.Set(ctx, j.id, store.Status{Status: store.StatusRunning})
    started := time.Now()

    report := func(progress int, message string) {
        _ = r.status.Set(context.Background(), j.id, store.Status{
            Status:   store.StatusRunning,
            Progress: progress,
            Message:  message,
        })
    }

    result, err := j.fn(ctx, report)
    elapsed := time.Since(started)

    // assembly metrics are recorded where the work happens; the runner
    // only tracks status
    switch {
    case err == nil:
        r.finish(j, store.StatusDone, "", result)
        log.Info().Str("job_id", j.id).Str("kind", j.kind).Dur("elapsed", elapsed).Msg("job completed")
    case ctx.Err() != nil:
        r.finish(j, store.StatusCancelled, "cancelled", "")
        log.Warn().Str("job_id", j.id).Str("kind", j.kind).Msg("job cancelled")
    default:
        r.finish(j, store.StatusFailed, err.Error(), "")
        log.Error().Err(err).Str("job_id", j.id).Str("kind", j.kind).Msg("job failed")
    }
}

func (r *Runner) finish(j *job, status, message, result string) {
    now := time.Now()
    progress := 0
    if status == store.StatusDone { progress = 100 }
    _ = r.status.Set(context.Background(), j.id, store.Status{
        Status:   status,
        Progress: progress,
        Message:  message,
        End:      &now,
    })
    r.mu.Lock()
    delete(r.active, j.id)
    if result != "" { r.results[j.id] = result }
    r.mu.Unlock()
}
