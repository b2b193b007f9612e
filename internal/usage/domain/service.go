package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Ledger is the atomic counter contract every backend satisfies.
type Ledger interface {
	Increment(ctx context.Context, tenantID snowflake.ID, resource Resource, amount int64) (int64, error)
	// TryIncrement refuses with ErrLimitReached when value+amount would exceed limit.
	// A limit of Unlimited never refuses.
	TryIncrement(ctx context.Context, tenantID snowflake.ID, resource Resource, amount, limit int64) (int64, error)
	Reset(ctx context.Context, tenantID snowflake.ID, resource Resource) error
	CurrentValue(ctx context.Context, tenantID snowflake.ID, resource Resource) (int64, error)
}

type Service interface {
	Ledger

	// Tx variants join the caller's transaction.
	IncrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource Resource, amount int64) (int64, error)
	TryIncrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource Resource, amount, limit int64) (int64, error)
	DecrementTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, resource Resource, amount int64) (int64, error)

	InitTx(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, now time.Time) error
	Snapshot(ctx context.Context, tenantID snowflake.ID) (Snapshot, error)

	// ResetIfDue zeroes ai_responses when the stored period predates the one
	// containing now. It reports whether a reset happened.
	ResetIfDue(ctx context.Context, tenantID snowflake.ID, now time.Time) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]snowflake.ID, error)
}

const Unlimited int64 = -1

var (
	ErrLedgerUnavailable     = errors.New("ledger_unavailable")
	ErrLimitReached          = errors.New("limit_reached")
	ErrInvalidResource       = errors.New("invalid_resource")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrResourceNotResettable = errors.New("resource_not_resettable")
)
