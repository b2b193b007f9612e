package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	staffdomain "github.com/smallbiznis/staydesk/internal/staff/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"github.com/smallbiznis/staydesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    staffdomain.Repository
	Tenants tenantdomain.Service
	Usage   usagedomain.Service
	Audit   auditdomain.Service
	Gate    *gate.Gate
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    staffdomain.Repository
	tenants tenantdomain.Service
	usage   usagedomain.Service
	audit   auditdomain.Service
	gate    *gate.Gate
}

func NewService(p Params) staffdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("staff.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		tenants: p.Tenants,
		usage:   p.Usage,
		audit:   p.Audit,
		gate:    p.Gate,
	}
}

func (s *Service) Invite(ctx context.Context, tenantID snowflake.ID, req staffdomain.CreateRequest) (*staffdomain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, staffdomain.ErrInvalidEmail
	}
	role, err := staffdomain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if d := s.gate.Evaluate(ctx, *tenant, gate.Limit(entitlement.Users)); !d.Allowed {
		return nil, d.Err()
	}

	now := s.clock.Now().UTC()
	user := staffdomain.User{
		ID:        s.genID.Generate(),
		TenantID:  tenant.ID,
		Email:     strings.ToLower(addr.Address),
		Name:      strings.TrimSpace(req.Name),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	limit := entitlement.Limit(*tenant, entitlement.Users)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return staffdomain.ErrUserExists
			}
			return err
		}
		if _, err := s.usage.TryIncrementTx(ctx, tx, tenant.ID, usagedomain.ResourceUsers, 1, limit); err != nil {
			if errors.Is(err, usagedomain.ErrLimitReached) {
				return gate.LimitReached(entitlement.Users).Err()
			}
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   tenant.ID,
			EntityType: auditdomain.EntityUser,
			EntityID:   user.ID.String(),
			Action:     "user.invited",
			ActorType:  auditdomain.ActorTenant,
			Metadata:   map[string]any{"role": string(user.Role)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) Remove(ctx context.Context, tenantID, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.Delete(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if !ok {
			return staffdomain.ErrUserNotFound
		}
		if _, err := s.usage.DecrementTx(ctx, tx, tenantID, usagedomain.ResourceUsers, 1); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   tenantID,
			EntityType: auditdomain.EntityUser,
			EntityID:   id.String(),
			Action:     "user.removed",
			ActorType:  auditdomain.ActorTenant,
		})
	})
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]staffdomain.User, error) {
	if tenantID == 0 {
		return nil, tenantdomain.ErrInvalidTenant
	}
	return s.repo.List(ctx, s.db, tenantID)
}
