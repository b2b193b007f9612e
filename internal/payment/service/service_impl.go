package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/audit/masking"
	"github.com/smallbiznis/staydesk/internal/gate"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	"github.com/smallbiznis/staydesk/internal/integration/registry"
	paymentdomain "github.com/smallbiznis/staydesk/internal/payment/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Tenants   tenantdomain.Service
	Audit     auditdomain.Service
	Gate      *gate.Gate
	Connector *registry.Connector
}

type Service struct {
	log       *zap.Logger
	tenants   tenantdomain.Service
	audit     auditdomain.Service
	gate      *gate.Gate
	connector *registry.Connector
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:       p.Log.Named("payment.service"),
		tenants:   p.Tenants,
		audit:     p.Audit,
		gate:      p.Gate,
		connector: p.Connector,
	}
}

func (s *Service) Checkout(ctx context.Context, tenantID snowflake.ID, req paymentdomain.CheckoutRequest) (*integrationdomain.CheckoutSession, error) {
	if !req.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, paymentdomain.ErrMissingReference
	}
	if !validRedirect(req.SuccessURL) || !validRedirect(req.CancelURL) {
		return nil, paymentdomain.ErrInvalidRedirect
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if d := s.gate.Evaluate(ctx, *tenant, gate.Active()); !d.Allowed {
		return nil, d.Err()
	}

	client, bundle, err := s.connector.Payment(*tenant)
	if err != nil {
		return nil, err
	}

	session, err := client.CreateCheckout(ctx, integrationdomain.CheckoutRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Reference:   reference,
		SuccessURL:  strings.TrimSpace(req.SuccessURL),
		CancelURL:   strings.TrimSpace(req.CancelURL),
	})
	if err != nil {
		s.log.Warn("checkout session failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.audit.Record(ctx, nil, auditdomain.Entry{
		TenantID:   tenant.ID,
		EntityType: auditdomain.EntityPayment,
		EntityID:   session.ID,
		Action:     "payment.checkout_created",
		ActorType:  auditdomain.ActorTenant,
		Metadata: map[string]any{
			"reference": reference,
			"amount":    req.Amount.String(),
			"currency":  strings.ToLower(strings.TrimSpace(req.Currency)),
			"account":   masking.MaskSecret(bundle.AccountID),
			"provider":  session.Provider,
		},
	}); err != nil {
		s.log.Warn("failed to record checkout", zap.String("session_id", session.ID), zap.Error(err))
	}
	return session, nil
}

func validRedirect(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
