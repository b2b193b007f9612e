package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent reports false when the (provider, event_id) row already exists.
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, eventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome Outcome, processedAt time.Time) error
}

type Service interface {
	// HandleWebhook verifies a signed processor callback and applies it.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error)
	Apply(ctx context.Context, event Event, payload []byte) (Result, error)
}

var (
	ErrWebhookNotConfigured = errors.New("webhook_not_configured")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrInvalidEvent         = errors.New("invalid_event")
)
