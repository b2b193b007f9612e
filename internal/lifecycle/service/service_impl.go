package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	lifecycledomain "github.com/smallbiznis/staydesk/internal/lifecycle/domain"
	obsmetrics "github.com/smallbiznis/staydesk/internal/observability/metrics"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       lifecycledomain.Repository
	Tenants    tenantdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       lifecycledomain.Repository
	tenants    tenantdomain.Service
	obsMetrics *obsmetrics.Metrics

	webhookSecret string
}

func NewService(p Params) lifecycledomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("lifecycle.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		tenants:       p.Tenants,
		obsMetrics:    p.ObsMetrics,
		webhookSecret: strings.TrimSpace(p.Cfg.StripeWebhookSecret),
	}
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (lifecycledomain.Result, error) {
	if s.webhookSecret == "" {
		return lifecycledomain.Result{}, lifecycledomain.ErrWebhookNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return lifecycledomain.Result{}, lifecycledomain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.log.Warn("rejected lifecycle webhook", zap.Error(err))
		return lifecycledomain.Result{}, lifecycledomain.ErrInvalidSignature
	}

	ev, err := fromStripeEvent(event)
	if err != nil {
		return lifecycledomain.Result{}, err
	}
	return s.Apply(ctx, ev, payload)
}

// Apply records the event, runs the transition and marks the event processed
// in the same transaction. A replay of a processed event is acknowledged with
// OutcomeDuplicate; an event whose transition failed stays unprocessed.
func (s *Service) Apply(ctx context.Context, ev lifecycledomain.Event, payload []byte) (lifecycledomain.Result, error) {
	ev.Provider = strings.ToLower(strings.TrimSpace(ev.Provider))
	ev.ID = strings.TrimSpace(ev.ID)
	ev.Type = strings.TrimSpace(ev.Type)
	if ev.Provider == "" || ev.ID == "" || ev.Type == "" {
		return lifecycledomain.Result{}, lifecycledomain.ErrInvalidEvent
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if !json.Valid(payload) {
		return lifecycledomain.Result{}, lifecycledomain.ErrInvalidPayload
	}

	result := lifecycledomain.Result{EventID: ev.ID, Type: ev.Type}
	now := s.clock.Now().UTC()

	received := lifecycledomain.EventRecord{
		ID:             s.genID.Generate(),
		Provider:       ev.Provider,
		EventID:        ev.ID,
		EventType:      ev.Type,
		SubscriptionID: ev.SubscriptionID,
		Payload:        datatypes.JSON(payload),
		ReceivedAt:     now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return result, err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, ev.Provider, ev.ID)
		if err != nil {
			return result, err
		}
		if stored == nil {
			return result, lifecycledomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			result.Outcome = lifecycledomain.OutcomeDuplicate
			s.record(ctx, ev, result.Outcome)
			return result, nil
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outcome, tenantID, err := s.transition(ctx, tx, ev)
		if err != nil {
			return err
		}
		result.Outcome = outcome
		result.TenantID = tenantID
		return s.repo.MarkProcessed(ctx, tx, stored.ID, outcome, now)
	})
	if err != nil {
		s.record(ctx, ev, lifecycledomain.OutcomeFailed)
		s.log.Error("lifecycle event failed",
			zap.String("event_id", ev.ID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
		return result, err
	}

	s.record(ctx, ev, result.Outcome)
	s.log.Info("lifecycle event processed",
		zap.String("event_id", ev.ID),
		zap.String("type", ev.Type),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, ev lifecycledomain.Event) (lifecycledomain.Outcome, snowflake.ID, error) {
	switch ev.Type {
	case lifecycledomain.EventInvoicePaymentSucceeded, lifecycledomain.EventInvoicePaid:
		return s.applyChange(ctx, tx, ev, tenantdomain.StateChange{Status: tenantdomain.StatusActive})

	case lifecycledomain.EventInvoicePaymentFailed:
		return s.applyChange(ctx, tx, ev, tenantdomain.StateChange{Status: tenantdomain.StatusPastDue})

	case lifecycledomain.EventSubscriptionDeleted:
		return s.applyChange(ctx, tx, ev, tenantdomain.StateChange{
			Status:     tenantdomain.StatusCanceled,
			Deactivate: true,
		})

	case lifecycledomain.EventSubscriptionUpdated:
		change := tenantdomain.StateChange{
			CurrentPeriodStart: ev.CurrentPeriodStart,
			CurrentPeriodEnd:   ev.CurrentPeriodEnd,
			CancelAtPeriodEnd:  ev.CancelAtPeriodEnd,
		}
		if status, ok := mapProcessorStatus(ev.Status); ok {
			change.Status = status
			change.Deactivate = status == tenantdomain.StatusCanceled
		}
		return s.applyChange(ctx, tx, ev, change)

	case lifecycledomain.EventCheckoutCompleted:
		return s.linkCheckout(ctx, tx, ev)

	default:
		s.log.Info("lifecycle event ignored", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return lifecycledomain.OutcomeIgnored, 0, nil
	}
}

func (s *Service) applyChange(ctx context.Context, tx *gorm.DB, ev lifecycledomain.Event, change tenantdomain.StateChange) (lifecycledomain.Outcome, snowflake.ID, error) {
	if ev.SubscriptionID == "" {
		s.log.Info("lifecycle event without subscription", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return lifecycledomain.OutcomeIgnored, 0, nil
	}

	record, err := s.tenants.FindByProcessorSubscription(ctx, tx, ev.SubscriptionID)
	if err != nil {
		return "", 0, err
	}
	if record == nil {
		s.log.Warn("lifecycle event for unknown subscription",
			zap.String("subscription_id", ev.SubscriptionID),
			zap.String("type", ev.Type),
		)
		return lifecycledomain.OutcomeUnknownSubscription, 0, nil
	}

	if record.Status.Terminal() {
		return lifecycledomain.OutcomeIgnored, record.ID, nil
	}
	if !changes(record, change) {
		return lifecycledomain.OutcomeUnchanged, record.ID, nil
	}

	if err := s.tenants.ApplyStateChange(ctx, tx, record.ID, change, ev.Provider+":"+ev.Type); err != nil {
		return "", 0, err
	}
	return lifecycledomain.OutcomeApplied, record.ID, nil
}

func (s *Service) linkCheckout(ctx context.Context, tx *gorm.DB, ev lifecycledomain.Event) (lifecycledomain.Outcome, snowflake.ID, error) {
	if ev.SubscriptionID == "" || ev.ClientReferenceID == "" {
		return lifecycledomain.OutcomeIgnored, 0, nil
	}
	tenantID, err := snowflake.ParseString(ev.ClientReferenceID)
	if err != nil || tenantID == 0 {
		s.log.Warn("checkout reference is not a tenant id", zap.String("client_reference_id", ev.ClientReferenceID))
		return lifecycledomain.OutcomeIgnored, 0, nil
	}

	err = s.tenants.LinkProcessorSubscription(ctx, tx, tenantID, ev.CustomerID, ev.SubscriptionID)
	switch {
	case errors.Is(err, tenantdomain.ErrTenantNotFound), errors.Is(err, tenantdomain.ErrSubscriptionLinked):
		s.log.Warn("checkout link skipped", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return lifecycledomain.OutcomeIgnored, tenantID, nil
	case err != nil:
		return "", 0, err
	}
	return lifecycledomain.OutcomeLinked, tenantID, nil
}

// mapProcessorStatus folds processor-specific statuses into the subscription
// vocabulary. Unknown values leave the status alone.
func mapProcessorStatus(raw string) (tenantdomain.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return tenantdomain.StatusActive, true
	case "trialing":
		return tenantdomain.StatusTrialing, true
	case "past_due", "incomplete":
		return tenantdomain.StatusPastDue, true
	case "unpaid", "paused":
		return tenantdomain.StatusUnpaid, true
	case "canceled", "incomplete_expired":
		return tenantdomain.StatusCanceled, true
	default:
		return "", false
	}
}

func changes(record *tenantdomain.Record, change tenantdomain.StateChange) bool {
	if change.Status != "" && change.Status != record.Status {
		return true
	}
	if change.Deactivate && record.IsActive {
		return true
	}
	if change.CancelAtPeriodEnd != nil && *change.CancelAtPeriodEnd != record.CancelAtPeriodEnd {
		return true
	}
	return timeChanged(record.CurrentPeriodStart, change.CurrentPeriodStart) ||
		timeChanged(record.CurrentPeriodEnd, change.CurrentPeriodEnd)
}

func timeChanged(current, next *time.Time) bool {
	if next == nil {
		return false
	}
	return current == nil || !current.Equal(*next)
}

func (s *Service) record(ctx context.Context, ev lifecycledomain.Event, outcome lifecycledomain.Outcome) {
	s.obsMetrics.RecordLifecycleEvent(ctx, ev.Provider, ev.Type, string(outcome))
}
