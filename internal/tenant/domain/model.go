package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusUnpaid   Status = "unpaid"
	StatusCanceled Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusUnpaid, StatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further processor event can revive the subscription.
func (s Status) Terminal() bool {
	return s == StatusCanceled
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type Subscription struct {
	Tier                    tier.Tier       `json:"tier"`
	Status                  Status          `json:"status"`
	Features                tier.FeatureSet `json:"features"`
	MonthlyPrice            decimal.Decimal `json:"monthly_price"`
	TrialEndsAt             *time.Time      `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart      *time.Time      `json:"current_period_start,omitempty"`
	CurrentPeriodEnd        *time.Time      `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd       bool            `json:"cancel_at_period_end"`
	ProcessorCustomerID     string          `json:"processor_customer_id,omitempty"`
	ProcessorSubscriptionID string          `json:"processor_subscription_id,omitempty"`
}

type Usage = usagedomain.Snapshot

type MessagingCredentials struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"-"`
	FromNumber string `json:"from_number"`
}

// Complete reports whether every field needed to send through the tenant's
// own gateway account is present.
func (m *MessagingCredentials) Complete() bool {
	if m == nil {
		return false
	}
	return strings.TrimSpace(m.AccountSID) != "" &&
		strings.TrimSpace(m.AuthToken) != "" &&
		strings.TrimSpace(m.FromNumber) != ""
}

type AICredentials struct {
	Provider string `json:"provider"`
	APIKey   string `json:"-"`
}

type Credentials struct {
	Messaging *MessagingCredentials `json:"messaging,omitempty"`
	// PaymentAccountID is the processor connected-account identifier.
	PaymentAccountID string         `json:"payment_account_id,omitempty"`
	AI               *AICredentials `json:"ai,omitempty"`
}

// Tenant is the snapshot the entitlement engine evaluates.
type Tenant struct {
	ID           snowflake.ID `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Subscription Subscription `json:"subscription"`
	Usage        Usage        `json:"usage"`
	Credentials  Credentials  `json:"credentials"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// OwnerAPIKey is set only on the signup response.
	OwnerAPIKey string `json:"owner_api_key,omitempty"`
}

// Record is the persisted row behind a Tenant.
type Record struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string       `gorm:"type:text;not null"`
	Slug string       `gorm:"type:varchar(128);not null;uniqueIndex:ux_tenants_slug"`

	Tier                    tier.Tier                           `gorm:"column:tier;type:varchar(32);not null"`
	Status                  Status                              `gorm:"column:status;type:varchar(32);not null"`
	Features                datatypes.JSONType[tier.FeatureSet] `gorm:"column:features;not null"`
	MonthlyPrice            decimal.Decimal                     `gorm:"column:monthly_price;type:numeric(12,2);not null"`
	TrialEndsAt             *time.Time                          `gorm:"column:trial_ends_at"`
	CurrentPeriodStart      *time.Time                          `gorm:"column:current_period_start"`
	CurrentPeriodEnd        *time.Time                          `gorm:"column:current_period_end"`
	CancelAtPeriodEnd       bool                                `gorm:"column:cancel_at_period_end;not null;default:false"`
	ProcessorCustomerID     *string                             `gorm:"column:processor_customer_id"`
	ProcessorSubscriptionID *string                             `gorm:"column:processor_subscription_id;uniqueIndex:ux_tenants_processor_subscription"`

	MessagingAccountSID string `gorm:"column:messaging_account_sid;not null;default:''"`
	MessagingAuthToken  string `gorm:"column:messaging_auth_token;not null;default:''"`
	MessagingFromNumber string `gorm:"column:messaging_from_number;not null;default:''"`
	PaymentAccountID    string `gorm:"column:payment_account_id;not null;default:''"`
	AIProvider          string `gorm:"column:ai_provider;not null;default:''"`
	AIAPIKey            string `gorm:"column:ai_api_key;not null;default:''"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "tenants" }

// ToTenant combines a record with its usage snapshot.
func (r Record) ToTenant(usage Usage) Tenant {
	t := Tenant{
		ID:   r.ID,
		Name: r.Name,
		Slug: r.Slug,
		Subscription: Subscription{
			Tier:                    r.Tier,
			Status:                  r.Status,
			Features:                r.Features.Data().Clone(),
			MonthlyPrice:            r.MonthlyPrice,
			TrialEndsAt:             r.TrialEndsAt,
			CurrentPeriodStart:      r.CurrentPeriodStart,
			CurrentPeriodEnd:        r.CurrentPeriodEnd,
			CancelAtPeriodEnd:       r.CancelAtPeriodEnd,
			ProcessorCustomerID:     deref(r.ProcessorCustomerID),
			ProcessorSubscriptionID: deref(r.ProcessorSubscriptionID),
		},
		Usage: usage,
		Credentials: Credentials{
			PaymentAccountID: strings.TrimSpace(r.PaymentAccountID),
		},
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.MessagingAccountSID != "" || r.MessagingAuthToken != "" || r.MessagingFromNumber != "" {
		t.Credentials.Messaging = &MessagingCredentials{
			AccountSID: r.MessagingAccountSID,
			AuthToken:  r.MessagingAuthToken,
			FromNumber: r.MessagingFromNumber,
		}
	}
	if r.AIAPIKey != "" {
		t.Credentials.AI = &AICredentials{Provider: r.AIProvider, APIKey: r.AIAPIKey}
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
