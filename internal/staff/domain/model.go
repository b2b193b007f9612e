package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Role string

const (
	RoleOwner        Role = "owner"
	RoleManager      Role = "manager"
	RoleFrontDesk    Role = "front_desk"
	RoleHousekeeping Role = "housekeeping"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleOwner, RoleManager, RoleFrontDesk, RoleHousekeeping:
		return r, nil
	case "":
		return RoleFrontDesk, nil
	default:
		return "", ErrInvalidRole
	}
}

// User is a staff seat counted against the plan's user limit.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_staff_users_tenant_email,priority:1" json:"tenant_id"`
	Email     string       `gorm:"column:email;type:varchar(255);not null;uniqueIndex:ux_staff_users_tenant_email,priority:2" json:"email"`
	Name      string       `gorm:"column:name;type:text;not null;default:''" json:"name"`
	Role      Role         `gorm:"column:role;type:varchar(32);not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "staff_users" }

type CreateRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]User, error)
}

type Service interface {
	Invite(ctx context.Context, tenantID snowflake.ID, req CreateRequest) (*User, error)
	Remove(ctx context.Context, tenantID, id snowflake.ID) error
	List(ctx context.Context, tenantID snowflake.ID) ([]User, error)
}

var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrUserExists   = errors.New("user_exists")
	ErrUserNotFound = errors.New("user_not_found")
)
