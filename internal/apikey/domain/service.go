package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Deactivate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keyID string, now time.Time) (bool, error)
	FindByKeyID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keyID string) (*APIKey, error)
	// FindActiveByHash ignores revoked and expired keys.
	FindActiveByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]APIKey, error)
}

type Service interface {
	// Issue joins tx when it is non-nil.
	Issue(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, req CreateRequest) (*SecretResponse, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Response, error)
	Rotate(ctx context.Context, tenantID snowflake.ID, keyID string) (*SecretResponse, error)
	Revoke(ctx context.Context, tenantID snowflake.ID, keyID string) error
	Authenticate(ctx context.Context, raw string) (*APIKey, error)
}

type CreateRequest struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

type Response struct {
	KeyID            string     `json:"key_id"`
	Name             string     `json:"name"`
	Kind             Kind       `json:"kind"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RotatedFromKeyID *string    `json:"rotated_from_key_id,omitempty"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	Kind   Kind   `json:"kind"`
	APIKey string `json:"api_key"`
}

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidKind       = errors.New("invalid_kind")
	ErrInvalidKeyID      = errors.New("invalid_key_id")
	ErrKeyNotFound       = errors.New("api_key_not_found")
	ErrOwnerKeyProtected = errors.New("owner_key_protected")
)
