package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	obsmetrics "github.com/smallbiznis/staydesk/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"github.com/smallbiznis/staydesk/pkg/lock"
)

const (
	JobResetAIUsage = "reset_ai_usage"

	resetJobTimeout = 5 * time.Minute
	lockKeyPrefix   = "staydesk:scheduler:"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrInvalidSpec   = errors.New("invalid_scheduler_spec")
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Usage   usagedomain.Service
	Locker  *lock.Locker                 `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	cfg     config.SchedulerConfig
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	usage   usagedomain.Service
	locker  *lock.Locker
	metrics *obsmetrics.SchedulerMetrics

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.Usage == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		cfg:     withDefaults(p.Cfg.Scheduler),
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:   p.Clock,
		genID:   p.GenID,
		usage:   p.Usage,
		locker:  p.Locker,
		metrics: p.Metrics,
	}, nil
}

func withDefaults(c config.SchedulerConfig) config.SchedulerConfig {
	if strings.TrimSpace(c.Spec) == "" {
		c.Spec = "0 */15 * * * *"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	return c
}

// Start registers the jobs on a seconds-resolution cron in UTC.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: s.log.Sugar()})),
	)
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("%w: %q: %v", ErrInvalidSpec, s.cfg.Spec, err)
	}
	c.Start()
	s.cron = c
	s.cancel = cancel
	s.log.Info("scheduler started", zap.String("spec", s.cfg.Spec), zap.Int("concurrency", s.cfg.Concurrency))
	return nil
}

// Stop cancels in-flight jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick runs one round. With a locker configured only the replica holding the
// job lock does the work.
func (s *Scheduler) tick(ctx context.Context) {
	if s.locker.Enabled() {
		key := lockKeyPrefix + JobResetAIUsage
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("scheduler lock failed", zap.String("key", key), zap.Error(err))
			return
		}
		if !ok {
			s.log.Debug("scheduler lock held elsewhere", zap.String("key", key))
			return
		}
		defer func() {
			if err := s.locker.Release(context.Background(), key, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}
	if err := s.RunOnce(ctx); err != nil {
		s.log.Warn("scheduler run failed", zap.Error(err))
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobResetAIUsage, s.cfg.BatchSize, resetJobTimeout, s.ResetUsageJob)
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	s.metrics.AddProcessed(name, run.Processed())
	if owner {
		if err != nil && run.Errors() == 0 {
			run.IncError()
		}
		s.logJobFinish(run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err, classifyError)
	if isTimeout {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// ResetUsageJob zeroes ai_responses for every tenant whose stored period
// predates the current UTC month. Tenants that fail stay due and are retried
// on the next run.
func (s *Scheduler) ResetUsageJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobResetAIUsage, s.cfg.BatchSize)
	if owner {
		s.logJobStart(run)
		defer s.logJobFinish(run)
	}

	now := s.clock.Now().UTC()
	var errs error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(errs, err)
		}
		ids, err := s.usage.ListDue(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(errs, err)
		}
		if len(ids) == 0 {
			return errs
		}

		reset, err := s.resetBatch(ctx, run, ids, now)
		errs = errors.Join(errs, err)
		if reset == 0 || len(ids) < s.cfg.BatchSize {
			return errs
		}
	}
}

func (s *Scheduler) resetBatch(ctx context.Context, run *jobRun, ids []snowflake.ID, now time.Time) (int, error) {
	var (
		g     errgroup.Group
		reset atomic.Int64
		mu    sync.Mutex
		errs  error
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			rolled, err := s.usage.ResetIfDue(ctx, id, now)
			if err != nil {
				run.IncError()
				s.log.Error("usage reset failed",
					zap.String("job", JobResetAIUsage),
					zap.String("tenant_id", id.String()),
					zap.String("error_type", classifyError(err)),
					zap.Error(err),
				)
				mu.Lock()
				errs = errors.Join(errs, fmt.Errorf("tenant %s: %w", id, err))
				mu.Unlock()
				return nil
			}
			if rolled {
				reset.Add(1)
				run.AddProcessed(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(reset.Load()), errs
}

func classifyError(err error) string {
	if errors.Is(err, usagedomain.ErrLedgerUnavailable) {
		return obsmetrics.SchedulerErrorTypeLedger
	}
	return obsmetrics.SchedulerErrorTypeUnknown
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
