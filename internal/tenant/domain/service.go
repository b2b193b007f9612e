package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/staydesk/internal/tier"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Record, error)
	FindByProcessorSubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*Record, error)
	// ReplaceSubscription swaps tier, features and price in one statement.
	ReplaceSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, t tier.Tier, features tier.FeatureSet, price decimal.Decimal, now time.Time) (bool, error)
	UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, change StateChange, now time.Time) (bool, error)
	LinkProcessor(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID, subscriptionID string, now time.Time) (bool, error)
	SetPaymentAccount(ctx context.Context, db *gorm.DB, id snowflake.ID, accountID string, now time.Time) (bool, error)
	SetMessagingCredentials(ctx context.Context, db *gorm.DB, id snowflake.ID, creds MessagingCredentials, now time.Time) (bool, error)
}

type SignupRequest struct {
	Name string
	Slug string
}

// StateChange carries a processor-driven update. Nil fields are left as is.
type StateChange struct {
	Status             Status
	Deactivate         bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  *bool
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (*Tenant, error)
	UpdateSubscription(ctx context.Context, id snowflake.ID, t tier.Tier) (*Tenant, error)
	LinkPaymentAccount(ctx context.Context, id snowflake.ID, accountID string) (*Tenant, error)
	SetMessagingCredentials(ctx context.Context, id snowflake.ID, creds MessagingCredentials) (*Tenant, error)
	LinkProcessorSubscription(ctx context.Context, tx *gorm.DB, id snowflake.ID, customerID, subscriptionID string) error

	// FindByProcessorSubscription returns nil, nil when no tenant owns subscriptionID.
	FindByProcessorSubscription(ctx context.Context, tx *gorm.DB, subscriptionID string) (*Record, error)
	// ApplyStateChange joins tx and records the transition in the event log.
	ApplyStateChange(ctx context.Context, tx *gorm.DB, id snowflake.ID, change StateChange, source string) error
}

var (
	ErrTenantNotFound        = errors.New("tenant_not_found")
	ErrInvalidTenant         = errors.New("invalid_tenant")
	ErrInvalidName           = errors.New("invalid_name")
	ErrSlugTaken             = errors.New("slug_taken")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidPaymentAccount = errors.New("invalid_payment_account")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrSubscriptionLinked    = errors.New("subscription_already_linked")
)
