package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/audit/masking"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"github.com/smallbiznis/staydesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  tenantdomain.Repository
	Usage usagedomain.Service
	Audit auditdomain.Service
	Keys  apikeydomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  tenantdomain.Repository
	usage usagedomain.Service
	audit auditdomain.Service
	keys  apikeydomain.Service

	trialPeriod time.Duration
}

func New(p Params) tenantdomain.Service {
	trial := p.Cfg.TrialPeriod
	if trial <= 0 {
		trial = 14 * 24 * time.Hour
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("tenant.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		usage:       p.Usage,
		audit:       p.Audit,
		keys:        p.Keys,
		trialPeriod: trial,
	}
}

func (s *Service) Signup(ctx context.Context, req tenantdomain.SignupRequest) (*tenantdomain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tenantdomain.ErrInvalidName
	}
	tenantSlug := slug.Make(strings.TrimSpace(req.Slug))
	if tenantSlug == "" {
		tenantSlug = slug.Make(name)
	}
	if tenantSlug == "" {
		return nil, tenantdomain.ErrInvalidName
	}

	features, err := tier.FeaturesFor(tier.Basic)
	if err != nil {
		return nil, err
	}
	price, err := tier.PriceFor(tier.Basic)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	trialEnds := now.Add(s.trialPeriod)
	record := tenantdomain.Record{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         tenantSlug,
		Tier:         tier.Basic,
		Status:       tenantdomain.StatusTrialing,
		Features:     datatypes.NewJSONType(features),
		MonthlyPrice: price,
		TrialEndsAt:  &trialEnds,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var ownerKey string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &record); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return tenantdomain.ErrSlugTaken
			}
			return err
		}
		if err := s.usage.InitTx(ctx, tx, record.ID, now); err != nil {
			return err
		}
		if s.keys != nil {
			secret, err := s.keys.Issue(ctx, tx, record.ID, apikeydomain.CreateRequest{
				Name: "owner",
				Kind: apikeydomain.KindOwner,
			})
			if err != nil {
				return err
			}
			ownerKey = secret.APIKey
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   record.ID,
			EntityType: auditdomain.EntityTenant,
			EntityID:   record.ID.String(),
			Action:     "tenant.created",
			ActorType:  auditdomain.ActorTenant,
			Metadata: map[string]any{
				"tier":   string(record.Tier),
				"status": string(record.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant signed up",
		zap.String("tenant_id", record.ID.String()),
		zap.String("slug", record.Slug),
	)

	tenant := record.ToTenant(tenantdomain.Usage{LastReset: usagedomain.PeriodStart(now)})
	tenant.OwnerAPIKey = ownerKey
	return &tenant, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	if id == 0 {
		return nil, tenantdomain.ErrInvalidTenant
	}
	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, tenantdomain.ErrTenantNotFound
	}

	snap, err := s.usage.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	tenant := record.ToTenant(snap)
	return &tenant, nil
}

// UpdateSubscription replaces the feature set and price with the catalog
// entry for t. Usage counters are not touched.
func (s *Service) UpdateSubscription(ctx context.Context, id snowflake.ID, t tier.Tier) (*tenantdomain.Tenant, error) {
	if id == 0 {
		return nil, tenantdomain.ErrInvalidTenant
	}
	features, err := tier.FeaturesFor(t)
	if err != nil {
		return nil, err
	}
	price, err := tier.PriceFor(t)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return tenantdomain.ErrTenantNotFound
		}

		ok, err := s.repo.ReplaceSubscription(ctx, tx, id, t, features, price, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return tenantdomain.ErrTenantNotFound
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   id,
			EntityType: auditdomain.EntitySubscription,
			EntityID:   id.String(),
			Action:     "subscription.tier_changed",
			ActorType:  auditdomain.ActorTenant,
			Metadata: map[string]any{
				"from_tier":     string(current.Tier),
				"to_tier":       string(t),
				"monthly_price": price.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) LinkPaymentAccount(ctx context.Context, id snowflake.ID, accountID string) (*tenantdomain.Tenant, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, tenantdomain.ErrInvalidPaymentAccount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.SetPaymentAccount(ctx, tx, id, accountID, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return tenantdomain.ErrTenantNotFound
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   id,
			EntityType: auditdomain.EntityCredential,
			EntityID:   "payment",
			Action:     "credential.payment_account_linked",
			ActorType:  auditdomain.ActorTenant,
			Metadata:   masking.MaskFields(map[string]any{"account_id": accountID}),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) SetMessagingCredentials(ctx context.Context, id snowflake.ID, creds tenantdomain.MessagingCredentials) (*tenantdomain.Tenant, error) {
	creds = tenantdomain.MessagingCredentials{
		AccountSID: strings.TrimSpace(creds.AccountSID),
		AuthToken:  strings.TrimSpace(creds.AuthToken),
		FromNumber: strings.TrimSpace(creds.FromNumber),
	}
	if creds.AccountSID == "" && creds.AuthToken == "" && creds.FromNumber == "" {
		return nil, tenantdomain.ErrInvalidCredentials
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.SetMessagingCredentials(ctx, tx, id, creds, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return tenantdomain.ErrTenantNotFound
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   id,
			EntityType: auditdomain.EntityCredential,
			EntityID:   "messaging",
			Action:     "credential.messaging_updated",
			ActorType:  auditdomain.ActorTenant,
			Metadata: map[string]any{
				"account_sid": masking.MaskSecret(creds.AccountSID),
				"complete":    creds.Complete(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) LinkProcessorSubscription(ctx context.Context, tx *gorm.DB, id snowflake.ID, customerID, subscriptionID string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return tenantdomain.ErrInvalidTenant
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		owner, err := s.repo.FindByProcessorSubscriptionID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if owner != nil && owner.ID != id {
			return tenantdomain.ErrSubscriptionLinked
		}

		ok, err := s.repo.LinkProcessor(ctx, tx, id, customerID, subscriptionID, s.clock.Now().UTC())
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return tenantdomain.ErrSubscriptionLinked
			}
			return err
		}
		if !ok {
			return tenantdomain.ErrTenantNotFound
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   id,
			EntityType: auditdomain.EntitySubscription,
			EntityID:   id.String(),
			Action:     "subscription.processor_linked",
			ActorType:  auditdomain.ActorProcessor,
			Metadata: map[string]any{
				"subscription_id": subscriptionID,
			},
		})
	})
}

func (s *Service) FindByProcessorSubscription(ctx context.Context, tx *gorm.DB, subscriptionID string) (*tenantdomain.Record, error) {
	if tx == nil {
		tx = s.db
	}
	return s.repo.FindByProcessorSubscriptionID(ctx, tx, subscriptionID)
}

func (s *Service) ApplyStateChange(ctx context.Context, tx *gorm.DB, id snowflake.ID, change tenantdomain.StateChange, source string) error {
	if change.Status != "" && !change.Status.Valid() {
		return tenantdomain.ErrInvalidStatus
	}

	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return tenantdomain.ErrTenantNotFound
		}

		ok, err := s.repo.UpdateState(ctx, tx, id, change, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return tenantdomain.ErrTenantNotFound
		}

		metadata := map[string]any{
			"from_status": string(current.Status),
			"source":      source,
		}
		if change.Status != "" {
			metadata["to_status"] = string(change.Status)
		}
		if change.Deactivate {
			metadata["deactivated"] = true
		}
		if change.CancelAtPeriodEnd != nil {
			metadata["cancel_at_period_end"] = *change.CancelAtPeriodEnd
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			TenantID:   id,
			EntityType: auditdomain.EntitySubscription,
			EntityID:   id.String(),
			Action:     "subscription.state_changed",
			ActorType:  auditdomain.ActorProcessor,
			Metadata:   metadata,
		})
	})
}

func (s *Service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}
