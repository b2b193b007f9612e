package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	// KindOwner is issued once at signup and may manage the account.
	KindOwner Kind = "owner"
	// KindIntegration is for programmatic access and needs the api_access feature.
	KindIntegration Kind = "integration"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindOwner, KindIntegration:
		return k, nil
	case "":
		return KindIntegration, nil
	default:
		return "", ErrInvalidKind
	}
}

// APIKey stores a hashed credential scoped to one tenant.
type APIKey struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	TenantID         snowflake.ID `gorm:"column:tenant_id;not null;index:idx_api_keys_tenant"`
	KeyID            string       `gorm:"column:key_id;type:varchar(64);not null;uniqueIndex:ux_api_keys_key_id"`
	Name             string       `gorm:"type:text;not null"`
	Kind             Kind         `gorm:"column:kind;type:varchar(32);not null"`
	KeyHash          string       `gorm:"column:key_hash;type:varchar(64);not null;uniqueIndex:ux_api_keys_key_hash"`
	IsActive         bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
	ExpiresAt        *time.Time   `gorm:"column:expires_at"`
	RotatedFromKeyID *string      `gorm:"column:rotated_from_key_id;type:varchar(64)"`
}

func (APIKey) TableName() string { return "api_keys" }
