package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Init(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart, now time.Time) error
	// Add applies delta and returns the new value. Negative deltas floor at zero.
	Add(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource Resource, delta int64, now time.Time) (int64, error)
	// AddWithin applies delta only if the result stays <= limit.
	AddWithin(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource Resource, delta, limit int64, now time.Time) (value int64, ok bool, err error)
	Get(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource Resource) (*Counter, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Counter, error)
	Zero(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource Resource, now time.Time) error
	// RollPeriod zeroes the counter only when its stored period predates periodStart.
	RollPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, resource Resource, periodStart, now time.Time) (bool, error)
	ListDue(ctx context.Context, db *gorm.DB, resource Resource, periodStart time.Time, limit int) ([]snowflake.ID, error)
}
