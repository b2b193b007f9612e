package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Processor event types the adapter reacts to.
const (
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventCheckoutCompleted       = "checkout.session.completed"
)

type Outcome string

const (
	OutcomeApplied             Outcome = "applied"
	OutcomeUnchanged           Outcome = "unchanged"
	OutcomeLinked              Outcome = "linked"
	OutcomeIgnored             Outcome = "ignored"
	OutcomeUnknownSubscription Outcome = "unknown_subscription"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeFailed              Outcome = "failed"
)

// Event is the processor-neutral form of a lifecycle callback.
type Event struct {
	Provider          string
	ID                string
	Type              string
	SubscriptionID    string
	CustomerID        string
	ClientReferenceID string
	// Status is the processor's subscription status, set on subscription events.
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  *bool
	OccurredAt         time.Time
}

type Result struct {
	EventID  string       `json:"event_id"`
	Type     string       `json:"type"`
	Outcome  Outcome      `json:"outcome"`
	TenantID snowflake.ID `json:"tenant_id,omitempty"`
}

// EventRecord is one row of lifecycle_events. A row without ProcessedAt is
// retried on redelivery.
type EventRecord struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	Provider       string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_lifecycle_events_provider_event,priority:1"`
	EventID        string         `gorm:"column:event_id;type:varchar(255);not null;uniqueIndex:ux_lifecycle_events_provider_event,priority:2"`
	EventType      string         `gorm:"type:varchar(128);not null"`
	SubscriptionID string         `gorm:"type:varchar(255);not null;default:''"`
	Payload        datatypes.JSON `gorm:"not null"`
	Outcome        string         `gorm:"type:varchar(32);not null;default:''"`
	ReceivedAt     time.Time      `gorm:"not null"`
	ProcessedAt    *time.Time
}

func (EventRecord) TableName() string { return "lifecycle_events" }
