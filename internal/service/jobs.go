package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/metrics"
	"github.com/voyagen/lulutv/internal/models"
)

// DefaultConcurrency is the number of probes in flight when none is configured.
const DefaultConcurrency = 10

// ChannelLoader supplies the parsed channel index.
type ChannelLoader interface {
	Load(ctx context.Context, force bool) (*cache.Snapshot, error)
	Current() *cache.Snapshot
}

// Prober probes one channel's stream.
type Prober interface {
	ProbeChannel(ctx context.Context, rec models.ChannelRecord) (models.ValidationResult, error)
}

// RunLock is an optional cross-process guard for bulk runs.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}

// ValidatorConfig tunes a Validator. Zero values take defaults.
type ValidatorConfig struct {
	Concurrency int
	// Freshness is how long a result is reused by ValidatePage.
	Freshness time.Duration
	Lock      RunLock
}

// JobStatus is the job state plus the size of the validation cache.
type JobStatus struct {
	models.JobState
	ValidatedMapSize int `json:"validated_map_size"`
}

// Validator runs bulk validation jobs over the channel index, one at a time,
// and validates individual listing pages on demand.
type Validator struct {
	channels    ChannelLoader
	prober      Prober
	results     *cache.ResultCache
	concurrency int
	freshness   time.Duration
	lock        RunLock
	base        context.Context
	now         func() time.Time

	mu       sync.Mutex
	state    models.JobState
	starting bool // a Start is acquiring the distributed lock
	wg       sync.WaitGroup
}

// NewValidator returns a Validator whose jobs run under ctx; cancelling ctx
// stops scheduling new probes.
func NewValidator(ctx context.Context, channels ChannelLoader, prober Prober, results *cache.ResultCache, cfg ValidatorConfig) *Validator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 30 * time.Minute
	}
	return &Validator{
		channels:    channels,
		prober:      prober,
		results:     results,
		concurrency: cfg.Concurrency,
		freshness:   cfg.Freshness,
		lock:        cfg.Lock,
		base:        ctx,
		now:         time.Now,
	}
}

// Start launches a bulk validation in the background and returns its initial
// state. It returns ErrJobRunning if a job is already running or starting.
// The distributed lock is taken without holding the state mutex, so Status
// does not wait on Redis.
func (v *Validator) Start(forceRefresh bool) (models.JobState, error) {
	v.mu.Lock()
	if v.state.Running || v.starting {
		v.mu.Unlock()
		metrics.IncJob("rejected")
		return models.JobState{}, ErrJobRunning
	}
	v.starting = true
	v.mu.Unlock()

	id := uuid.NewString()
	ctx := log.ContextWithJobID(v.base, id)
	logger := log.WithComponentFromContext(ctx, "jobs")

	release := func() {}
	if v.lock != nil {
		r, err := v.lock.TryAcquire(ctx)
		switch {
		case errors.Is(err, cache.ErrLocked):
			v.mu.Lock()
			v.starting = false
			v.mu.Unlock()
			metrics.IncJob("rejected")
			return models.JobState{}, ErrJobRunning
		case err != nil:
			logger.Warn().Err(err).Str("event", "validate.lock_unavailable").Msg("running without distributed lock")
		default:
			release = r
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.starting = false
	started := v.now().UTC()
	v.state = models.JobState{JobID: id, Running: true, StartedAt: &started}
	metrics.SetJobRunning(true)
	metrics.SetJobProgress(0)
	logger.Info().Str("event", "validate.start").Bool("force_refresh", forceRefresh).Msg("bulk validation started")

	v.wg.Add(1)
	go v.run(ctx, forceRefresh, release)
	return v.state, nil
}

// Status returns a snapshot of the current or last job.
func (v *Validator) Status() JobStatus {
	v.mu.Lock()
	st := v.state
	v.mu.Unlock()
	st.ProgressPercent = math.Round(st.ProgressPercent*100) / 100
	return JobStatus{JobState: st, ValidatedMapSize: v.results.Len()}
}

// Wait blocks until the running job, if any, has finished.
func (v *Validator) Wait() {
	v.wg.Wait()
}

type outcome struct {
	url string
	res models.ValidationResult
	err error
}

func (v *Validator) run(ctx context.Context, force bool, release func()) {
	defer v.wg.Done()
	logger := log.WithComponentFromContext(ctx, "jobs")
	result := "completed"
	defer func() {
		release()
		finished := v.now().UTC()
		v.mu.Lock()
		v.state.Running = false
		v.state.FinishedAt = &finished
		st := v.state
		v.mu.Unlock()
		metrics.SetJobRunning(false)
		metrics.IncJob(result)
		logger.Info().
			Str("event", "validate.finish").
			Int("total", st.Total).
			Int("working", st.ValidatedOKCount).
			Int("errors", st.ErrorCount).
			Dur("elapsed", finished.Sub(*st.StartedAt)).
			Msg("bulk validation finished")
	}()

	snap, err := v.channels.Load(ctx, force)
	if err != nil {
		result = "failed"
		logger.Error().Err(err).Str("event", "validate.load_failed").Msg("could not load channel index")
		v.mu.Lock()
		v.state.LastError = err.Error()
		v.mu.Unlock()
		return
	}

	records := uniqueByURL(snap.Records)
	total := len(records)
	v.mu.Lock()
	v.state.Total = total
	v.mu.Unlock()
	if total == 0 {
		return
	}

	batchSize := max(10, 2*v.concurrency)
	outcomes := make(chan outcome, batchSize)
	go v.schedule(ctx, records, outcomes)

	var (
		batch              = make([]outcome, 0, batchSize)
		completed, ok, bad int
	)
	flush := func() {
		for _, o := range batch {
			if o.err != nil {
				bad++
				v.results.Put(o.url, models.ValidationResult{CheckedAt: v.now().UTC(), Detail: o.err.Error()})
				continue
			}
			if o.res.Working {
				ok++
			}
			v.results.Put(o.url, o.res)
		}
		completed += len(batch)
		batch = batch[:0]

		pct := float64(completed) / float64(total) * 100
		v.mu.Lock()
		v.state.ValidatedOKCount = ok
		v.state.ErrorCount = bad
		v.state.ProgressPercent = pct
		v.mu.Unlock()
		metrics.SetJobProgress(pct)
		logger.Debug().Str("event", "validate.progress").Int("completed", completed).Int("total", total).Msg("batch flushed")
	}
	for o := range outcomes {
		batch = append(batch, o)
		if len(batch) == batchSize {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}
	if completed < total {
		result = "failed"
		logger.Warn().Str("event", "validate.interrupted").Int("completed", completed).Int("total", total).Msg("bulk validation stopped early")
	}
}

// schedule admits probes in manifest order through a counting gate and
// closes out once every admitted probe has reported.
func (v *Validator) schedule(ctx context.Context, records []models.ChannelRecord, out chan<- outcome) {
	gate := semaphore.NewWeighted(int64(v.concurrency))
	var inflight sync.WaitGroup
	for _, rec := range records {
		if err := gate.Acquire(ctx, 1); err != nil {
			break
		}
		inflight.Add(1)
		go func(rec models.ChannelRecord) {
			defer inflight.Done()
			defer gate.Release(1)
			out <- v.probeOne(ctx, rec)
		}(rec)
	}
	inflight.Wait()
	close(out)
}

func (v *Validator) probeOne(ctx context.Context, rec models.ChannelRecord) (o outcome) {
	o.url = rec.URL
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("probe panic: %v", r)
		}
	}()
	o.res, o.err = v.prober.ProbeChannel(ctx, rec)
	return o
}

// ValidatePage probes the records whose cached result is missing or older
// than the freshness window and stores the results. Probe failures are
// recorded as non-working results, not returned.
func (v *Validator) ValidatePage(ctx context.Context, records []models.ChannelRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, rec := range uniqueByURL(records) {
		if !v.results.IsStale(rec.URL, v.freshness) {
			continue
		}
		g.Go(func() error {
			o := v.probeOne(gctx, rec)
			if o.err != nil {
				v.results.Put(o.url, models.ValidationResult{CheckedAt: v.now().UTC(), Detail: o.err.Error()})
				return nil
			}
			v.results.Put(o.url, o.res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func uniqueByURL(records []models.ChannelRecord) []models.ChannelRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.ChannelRecord, 0, len(records))
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
