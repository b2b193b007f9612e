package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
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
	Repo    roomdomain.Repository
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
	repo    roomdomain.Repository
	tenants tenantdomain.Service
	usage   usagedomain.Service
	audit   auditdomain.Service
	gate    *gate.Gate
}

func NewService(p Params) roomdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("room.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		tenants: p.Tenants,
		usage:   p.Usage,
		audit:   p.Audit,
		gate:    p.Gate,
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req roomdomain.CreateRequest) (*roomdomain.Room, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, roomdomain.ErrInvalidNumber
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if d := s.gate.Evaluate(ctx, *tenant, gate.Limit(entitlement.Rooms)); !d.Allowed {
		return nil, d.Err()
	}

	now := s.clock.Now().UTC()
	room := roomdomain.Room{
		ID:        s.genID.Generate(),
		TenantID:  tenant.ID,
		Number:    number,
		Name:      strings.TrimSpace(req.Name),
		Floor:     req.Floor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	limit := entitlement.Limit(*tenant, entitlement.Rooms)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &room); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return roomdomain.ErrRoomExists
			}
			return err
		}
		if _, err := s.usage.TryIncrementTx(ctx, tx, tenant.ID, usagedomain.ResourceRooms, 1, limit); err != nil {
			if errors.Is(err, usagedomain.ErrLimitReached) {
				return gate.LimitReached(entitlement.Rooms).Err()
			}
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   tenant.ID,
			EntityType: auditdomain.EntityRoom,
			EntityID:   room.ID.String(),
			Action:     "room.created",
			ActorType:  auditdomain.ActorTenant,
			Metadata:   map[string]any{"number": room.Number},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("room created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("room_id", room.ID.String()),
	)
	return &room, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if room == nil {
			return roomdomain.ErrRoomNotFound
		}
		ok, err := s.repo.Delete(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if !ok {
			return roomdomain.ErrRoomNotFound
		}
		if _, err := s.usage.DecrementTx(ctx, tx, tenantID, usagedomain.ResourceRooms, 1); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   tenantID,
			EntityType: auditdomain.EntityRoom,
			EntityID:   id.String(),
			Action:     "room.deleted",
			ActorType:  auditdomain.ActorTenant,
			Metadata:   map[string]any{"number": room.Number},
		})
	})
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]roomdomain.Room, error) {
	if tenantID == 0 {
		return nil, tenantdomain.ErrInvalidTenant
	}
	return s.repo.List(ctx, s.db, tenantID)
}
