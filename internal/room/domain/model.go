package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Room struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_rooms_tenant_number,priority:1" json:"tenant_id"`
	Number    string       `gorm:"column:number;type:varchar(32);not null;uniqueIndex:ux_rooms_tenant_number,priority:2" json:"number"`
	Name      string       `gorm:"column:name;type:text;not null;default:''" json:"name"`
	Floor     int          `gorm:"column:floor;not null;default:0" json:"floor"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

type CreateRequest struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Floor  int    `json:"floor"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, room *Room) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Room, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Room, error)
}

type Service interface {
	// Create adds the room and bumps the rooms counter in one transaction.
	Create(ctx context.Context, tenantID snowflake.ID, req CreateRequest) (*Room, error)
	Delete(ctx context.Context, tenantID, id snowflake.ID) error
	List(ctx context.Context, tenantID snowflake.ID) ([]Room, error)
}

var (
	ErrInvalidNumber = errors.New("invalid_room_number")
	ErrRoomExists    = errors.New("room_exists")
	ErrRoomNotFound  = errors.New("room_not_found")
)
