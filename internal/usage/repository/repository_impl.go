package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Init(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart, now time.Time) error {
	rows := make([]usagedomain.Counter, 0, len(usagedomain.Resources()))
	for _, res := range usagedomain.Resources() {
		rows = append(rows, usagedomain.Counter{
			TenantID:    tenantID,
			Resource:    res,
			Value:       0,
			PeriodStart: periodStart,
			UpdatedAt:   now,
		})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *repo) ensure(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, now time.Time) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&usagedomain.Counter{
			TenantID:    tenantID,
			Resource:    resource,
			PeriodStart: usagedomain.PeriodStart(now),
			UpdatedAt:   now,
		}).Error
}

func (r *repo) Add(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, delta int64, now time.Time) (int64, error) {
	update := func() (int64, error) {
		res := db.WithContext(ctx).Exec(
			`UPDATE tenant_usage
			 SET value = CASE WHEN value + ? < 0 THEN 0 ELSE value + ? END,
			     updated_at = ?
			 WHERE tenant_id = ? AND resource = ?`,
			delta, delta, now, tenantID, resource,
		)
		return res.RowsAffected, res.Error
	}

	affected, err := update()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		if err := r.ensure(ctx, db, tenantID, resource, now); err != nil {
			return 0, err
		}
		if _, err := update(); err != nil {
			return 0, err
		}
	}
	return r.value(ctx, db, tenantID, resource)
}

func (r *repo) AddWithin(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, delta, limit int64, now time.Time) (int64, bool, error) {
	update := func() (int64, error) {
		res := db.WithContext(ctx).Exec(
			`UPDATE tenant_usage
			 SET value = value + ?, updated_at = ?
			 WHERE tenant_id = ? AND resource = ? AND value + ? <= ?`,
			delta, now, tenantID, resource, delta, limit,
		)
		return res.RowsAffected, res.Error
	}

	affected, err := update()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		existing, err := r.Get(ctx, db, tenantID, resource)
		if err != nil {
			return 0, false, err
		}
		if existing != nil {
			return existing.Value, false, nil
		}
		if err := r.ensure(ctx, db, tenantID, resource, now); err != nil {
			return 0, false, err
		}
		if affected, err = update(); err != nil {
			return 0, false, err
		}
		if affected == 0 {
			value, err := r.value(ctx, db, tenantID, resource)
			return value, false, err
		}
	}

	value, err := r.value(ctx, db, tenantID, resource)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (r *repo) value(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`SELECT value FROM tenant_usage WHERE tenant_id = ? AND resource = ?`,
		tenantID, resource,
	).Scan(&value).Error
	return value, err
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource) (*usagedomain.Counter, error) {
	var counter usagedomain.Counter
	err := db.WithContext(ctx).Raw(
		`SELECT tenant_id, resource, value, period_start, updated_at
		 FROM tenant_usage
		 WHERE tenant_id = ? AND resource = ?`,
		tenantID, resource,
	).Scan(&counter).Error
	if err != nil {
		return nil, err
	}
	if counter.TenantID == 0 {
		return nil, nil
	}
	return &counter, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]usagedomain.Counter, error) {
	var counters []usagedomain.Counter
	err := db.WithContext(ctx).Raw(
		`SELECT tenant_id, resource, value, period_start, updated_at
		 FROM tenant_usage
		 WHERE tenant_id = ?
		 ORDER BY resource ASC`,
		tenantID,
	).Scan(&counters).Error
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (r *repo) Zero(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenant_usage SET value = 0, updated_at = ? WHERE tenant_id = ? AND resource = ?`,
		now, tenantID, resource,
	).Error
}

func (r *repo) RollPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource usagedomain.Resource, periodStart, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tenant_usage
		 SET value = 0, period_start = ?, updated_at = ?
		 WHERE tenant_id = ? AND resource = ? AND period_start < ?`,
		periodStart, now, tenantID, resource, periodStart,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, resource usagedomain.Resource, periodStart time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var raw []int64
	err := db.WithContext(ctx).Raw(
		`SELECT tenant_id
		 FROM tenant_usage
		 WHERE resource = ? AND period_start < ?
		 ORDER BY tenant_id ASC
		 LIMIT ?`,
		resource, periodStart, limit,
	).Scan(&raw).Error
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, snowflake.ID(id))
	}
	return ids, nil
}
