package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resource names a per-tenant usage counter.
type Resource string

const (
	ResourceRooms       Resource = "rooms"
	ResourceAIResponses Resource = "ai_responses"
	ResourceUsers       Resource = "users"
)

func Resources() []Resource {
	return []Resource{ResourceRooms, ResourceAIResponses, ResourceUsers}
}

func (r Resource) Valid() bool {
	switch r {
	case ResourceRooms, ResourceAIResponses, ResourceUsers:
		return true
	default:
		return false
	}
}

// Periodic reports whether the counter is zeroed at each monthly boundary.
// Rooms and users track live entity counts instead.
func (r Resource) Periodic() bool {
	return r == ResourceAIResponses
}

// Counter is one row of tenant_usage.
type Counter struct {
	TenantID    snowflake.ID `gorm:"column:tenant_id;primaryKey"`
	Resource    Resource     `gorm:"column:resource;type:varchar(32);primaryKey"`
	Value       int64        `gorm:"column:value;not null;default:0"`
	PeriodStart time.Time    `gorm:"column:period_start;not null;index:idx_tenant_usage_period"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;not null"`
}

func (Counter) TableName() string { return "tenant_usage" }

// Snapshot is the usage view embedded in a tenant record.
type Snapshot struct {
	CurrentRooms         int64     `json:"current_rooms"`
	AIResponsesThisMonth int64     `json:"ai_responses_this_month"`
	UsersCount           int64     `json:"users_count"`
	LastReset            time.Time `json:"last_reset"`
}

func (s Snapshot) Value(r Resource) int64 {
	switch r {
	case ResourceRooms:
		return s.CurrentRooms
	case ResourceAIResponses:
		return s.AIResponsesThisMonth
	case ResourceUsers:
		return s.UsersCount
	default:
		return 0
	}
}

// PeriodStart returns the start of the UTC calendar month containing t.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
