package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	obsmetrics "github.com/smallbiznis/staydesk/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"github.com/smallbiznis/staydesk/internal/usage/redisledger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Repo       usagedomain.Repository
	Redis      *redisledger.Ledger `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock      clock.Clock
	repo       usagedomain.Repository
	redis      *redisledger.Ledger
	obsMetrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	svc := &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
	if p.Cfg.LedgerBackend == config.LedgerBackendRedis {
		if p.Redis == nil {
			svc.log.Warn("redis ledger requested but no client configured, using database counters")
		} else {
			svc.redis = p.Redis
		}
	}
	if svc.clock == nil {
		svc.clock = clock.SystemClock{}
	}
	return svc
}

func (s *Service) Increment(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource, amount int64) (int64, error) {
	return s.IncrementTx(ctx, nil, tenantID, resource, amount)
}

func (s *Service) IncrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, amount int64) (int64, error) {
	if err := validate(resource, amount); err != nil {
		return 0, err
	}
	if s.useRedis(resource) {
		value, err := s.redis.Increment(ctx, tenantID, resource, amount)
		if err != nil {
			return 0, s.observe(ctx, tenantID, resource, err)
		}
		s.recordIncrement(ctx, resource)
		return value, nil
	}

	var value int64
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		v, err := s.repo.Add(ctx, tx, tenantID, resource, amount, s.clock.Now())
		value = v
		return err
	})
	if err != nil {
		return 0, s.observe(ctx, tenantID, resource, unavailable(err))
	}
	s.recordIncrement(ctx, resource)
	return value, nil
}

func (s *Service) TryIncrement(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource, amount, limit int64) (int64, error) {
	return s.TryIncrementTx(ctx, nil, tenantID, resource, amount, limit)
}

func (s *Service) TryIncrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, amount, limit int64) (int64, error) {
	if limit < 0 {
		return s.IncrementTx(ctx, tx, tenantID, resource, amount)
	}
	if err := validate(resource, amount); err != nil {
		return 0, err
	}
	if s.useRedis(resource) {
		value, err := s.redis.TryIncrement(ctx, tenantID, resource, amount, limit)
		if errors.Is(err, usagedomain.ErrLimitReached) {
			return value, err
		}
		if err != nil {
			return 0, s.observe(ctx, tenantID, resource, err)
		}
		s.recordIncrement(ctx, resource)
		return value, nil
	}

	var (
		value int64
		ok    bool
	)
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		var err error
		value, ok, err = s.repo.AddWithin(ctx, tx, tenantID, resource, amount, limit, s.clock.Now())
		return err
	})
	if err != nil {
		return 0, s.observe(ctx, tenantID, resource, unavailable(err))
	}
	if !ok {
		return value, usagedomain.ErrLimitReached
	}
	s.recordIncrement(ctx, resource)
	return value, nil
}

func (s *Service) DecrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, amount int64) (int64, error) {
	if err := validate(resource, amount); err != nil {
		return 0, err
	}
	if resource.Periodic() {
		return 0, usagedomain.ErrInvalidResource
	}

	var value int64
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		v, err := s.repo.Add(ctx, tx, tenantID, resource, -amount, s.clock.Now())
		value = v
		return err
	})
	if err != nil {
		return 0, s.observe(ctx, tenantID, resource, unavailable(err))
	}
	return value, nil
}

func (s *Service) Reset(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource) error {
	if !resource.Valid() {
		return usagedomain.ErrInvalidResource
	}
	if !resource.Periodic() {
		return usagedomain.ErrResourceNotResettable
	}
	if s.useRedis(resource) {
		return s.observe(ctx, tenantID, resource, s.redis.Reset(ctx, tenantID, resource))
	}
	if err := s.repo.Zero(ctx, s.db, tenantID, resource, s.clock.Now()); err != nil {
		return s.observe(ctx, tenantID, resource, unavailable(err))
	}
	return nil
}

func (s *Service) CurrentValue(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource) (int64, error) {
	if !resource.Valid() {
		return 0, usagedomain.ErrInvalidResource
	}
	if s.useRedis(resource) {
		value, err := s.redis.CurrentValue(ctx, tenantID, resource)
		return value, s.observe(ctx, tenantID, resource, err)
	}
	counter, err := s.repo.Get(ctx, s.db, tenantID, resource)
	if err != nil {
		return 0, s.observe(ctx, tenantID, resource, unavailable(err))
	}
	if counter == nil {
		return 0, nil
	}
	return counter.Value, nil
}

func (s *Service) InitTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, now time.Time) error {
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		if err := s.repo.Init(ctx, tx, tenantID, usagedomain.PeriodStart(now), now); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Service) Snapshot(ctx context.Context, tenantID snowflake.ID) (usagedomain.Snapshot, error) {
	counters, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return usagedomain.Snapshot{}, unavailable(err)
	}

	var snap usagedomain.Snapshot
	for _, c := range counters {
		switch c.Resource {
		case usagedomain.ResourceRooms:
			snap.CurrentRooms = c.Value
		case usagedomain.ResourceAIResponses:
			snap.AIResponsesThisMonth = c.Value
			snap.LastReset = c.PeriodStart.UTC()
		case usagedomain.ResourceUsers:
			snap.UsersCount = c.Value
		}
	}

	if s.useRedis(usagedomain.ResourceAIResponses) {
		value, err := s.redis.CurrentValue(ctx, tenantID, usagedomain.ResourceAIResponses)
		if err != nil {
			return usagedomain.Snapshot{}, s.observe(ctx, tenantID, usagedomain.ResourceAIResponses, err)
		}
		snap.AIResponsesThisMonth = value
	}
	return snap, nil
}

func (s *Service) ResetIfDue(ctx context.Context, tenantID snowflake.ID, now time.Time) (bool, error) {
	periodStart := usagedomain.PeriodStart(now)
	resource := usagedomain.ResourceAIResponses

	var rolled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rolled, err = s.repo.RollPeriod(ctx, tx, tenantID, resource, periodStart, now.UTC())
		if err != nil {
			return unavailable(err)
		}
		if rolled && s.useRedis(resource) {
			// Rolls back the period move if redis refuses.
			return s.redis.Reset(ctx, tenantID, resource)
		}
		return nil
	})
	if err != nil {
		return false, s.observe(ctx, tenantID, resource, err)
	}
	if rolled {
		s.log.Info("monthly usage reset",
			zap.String("tenant_id", tenantID.String()),
			zap.Time("period_start", periodStart),
		)
	}
	return rolled, nil
}

func (s *Service) ListDue(ctx context.Context, now time.Time, limit int) ([]snowflake.ID, error) {
	ids, err := s.repo.ListDue(ctx, s.db, usagedomain.ResourceAIResponses, usagedomain.PeriodStart(now), limit)
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

func (s *Service) useRedis(resource usagedomain.Resource) bool {
	return s.redis != nil && s.redis.Supports(resource)
}

func (s *Service) backend(resource usagedomain.Resource) string {
	if s.useRedis(resource) {
		return config.LedgerBackendRedis
	}
	return config.LedgerBackendGorm
}

func (s *Service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Service) recordIncrement(ctx context.Context, resource usagedomain.Resource) {
	s.obsMetrics.RecordLedgerIncrement(ctx, string(resource), s.backend(resource))
}

func (s *Service) observe(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource, err error) error {
	if err == nil {
		return nil
	}
	backend := s.backend(resource)
	if errors.Is(err, usagedomain.ErrLedgerUnavailable) {
		s.obsMetrics.RecordLedgerFailure(ctx, string(resource), backend)
		s.log.Error("usage ledger unavailable",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource", string(resource)),
			zap.String("backend", backend),
			zap.Error(err),
		)
	}
	return err
}

func validate(resource usagedomain.Resource, amount int64) error {
	if !resource.Valid() {
		return usagedomain.ErrInvalidResource
	}
	if amount <= 0 {
		return usagedomain.ErrInvalidAmount
	}
	return nil
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, usagedomain.ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", usagedomain.ErrLedgerUnavailable, err)
}
