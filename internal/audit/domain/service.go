package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staydesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *EntityEvent) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]EntityEvent, error)
}

type Entry struct {
	TenantID   snowflake.ID
	EntityType string
	EntityID   string
	Action     string
	ActorType  string
	ActorID    *string
	Metadata   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	TenantID   snowflake.ID
	EntityType string
	EntityID   string
	Action     string
}

type ListResponse struct {
	pagination.PageInfo
	Events []EntityEvent `json:"events"`
}

type Service interface {
	// Record appends an event. A non-nil tx makes the event commit with the
	// caller's state change.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidEntity    = errors.New("invalid_entity")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
