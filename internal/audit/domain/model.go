package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EntityTenant       = "tenant"
	EntitySubscription = "subscription"
	EntityRoom         = "room"
	EntityUser         = "user"
	EntityCredential   = "credential"
	EntityMessage      = "message"
	EntityPayment      = "payment"
	EntityAPIKey       = "api_key"
)

const (
	ActorSystem    = "system"
	ActorTenant    = "tenant"
	ActorProcessor = "payment_processor"
	ActorScheduler = "scheduler"
)

// EntityEvent is an append-only record of a state change on one entity.
type EntityEvent struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID      `gorm:"column:tenant_id;not null;index:idx_entity_events_lookup,priority:1" json:"tenant_id"`
	EntityType string            `gorm:"column:entity_type;type:varchar(32);not null;index:idx_entity_events_lookup,priority:2" json:"entity_type"`
	EntityID   string            `gorm:"column:entity_id;type:varchar(64);not null;index:idx_entity_events_lookup,priority:3" json:"entity_id"`
	Action     string            `gorm:"column:action;type:varchar(64);not null" json:"action"`
	ActorType  string            `gorm:"column:actor_type;type:varchar(32);not null" json:"actor_type"`
	ActorID    *string           `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index:idx_entity_events_lookup,priority:4,sort:desc" json:"created_at"`
}

func (EntityEvent) TableName() string { return "entity_events" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	TenantID   snowflake.ID
	EntityType string
	EntityID   string
	Action     string
	Cursor     *Cursor
	Limit      int
}
