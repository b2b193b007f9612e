package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/audit/masking"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	"github.com/smallbiznis/staydesk/internal/integration/registry"
	messagingdomain "github.com/smallbiznis/staydesk/internal/messaging/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

func NewService(p Params) messagingdomain.Service {
	return &Service{
		log:       p.Log.Named("messaging.service"),
		tenants:   p.Tenants,
		audit:     p.Audit,
		gate:      p.Gate,
		connector: p.Connector,
	}
}

func (s *Service) Send(ctx context.Context, tenantID snowflake.ID, req messagingdomain.SendRequest) (*integrationdomain.Receipt, error) {
	channel, err := tier.ParseChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		return nil, messagingdomain.ErrMissingRecipient
	}
	template := strings.TrimSpace(req.Template)
	if template == "" && strings.TrimSpace(req.Body) == "" {
		return nil, messagingdomain.ErrMissingContent
	}
	capability, ok := entitlement.ChannelCapability(channel)
	if !ok {
		return nil, tier.ErrUnknownChannel
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if d := s.gate.Evaluate(ctx, *tenant, gate.Feature(capability)); !d.Allowed {
		return nil, d.Err()
	}

	client, bundle, err := s.connector.Messaging(*tenant)
	if err != nil {
		return nil, err
	}

	var receipt *integrationdomain.Receipt
	if template != "" {
		receipt, err = client.SendTemplate(ctx, integrationdomain.TemplateMessage{
			To: to, Channel: channel, Template: template, Variables: req.Variables,
		})
	} else {
		receipt, err = client.SendMessage(ctx, integrationdomain.Message{
			To: to, Channel: channel, Body: req.Body,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, nil, auditdomain.Entry{
		TenantID:   tenant.ID,
		EntityType: auditdomain.EntityMessage,
		EntityID:   receipt.ID,
		Action:     "message.sent",
		ActorType:  auditdomain.ActorTenant,
		Metadata: map[string]any{
			"channel":  string(channel),
			"to":       masking.MaskSecret(to),
			"provider": client.Name(),
			"shared":   bundle.IsShared,
			"template": template,
		},
	}); err != nil {
		// best effort, the message has already left
		s.log.Warn("failed to record sent message", zap.String("message_id", receipt.ID), zap.Error(err))
	}
	return receipt, nil
}
