package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	assistantdomain "github.com/smallbiznis/staydesk/internal/assistant/domain"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	"github.com/smallbiznis/staydesk/internal/integration/registry"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const conciergePrompt = "You are the front-desk concierge of a hotel. Answer guests briefly and politely."

type Params struct {
	fx.In

	Log       *zap.Logger
	Tenants   tenantdomain.Service
	Usage     usagedomain.Service
	Gate      *gate.Gate
	Connector *registry.Connector
}

type Service struct {
	log       *zap.Logger
	tenants   tenantdomain.Service
	usage     usagedomain.Service
	gate      *gate.Gate
	connector *registry.Connector
}

func NewService(p Params) assistantdomain.Service {
	return &Service{
		log:       p.Log.Named("assistant.service"),
		tenants:   p.Tenants,
		usage:     p.Usage,
		gate:      p.Gate,
		connector: p.Connector,
	}
}

func (s *Service) Reply(ctx context.Context, tenantID snowflake.ID, req assistantdomain.ReplyRequest) (*assistantdomain.Reply, error) {
	message := strings.TrimSpace(req.GuestMessage)
	if message == "" {
		return nil, assistantdomain.ErrEmptyMessage
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	requirement := gate.Limit(entitlement.AIResponses)
	system := conciergePrompt
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		requirement = gate.All(gate.Feature(entitlement.CustomAI), requirement)
		system = instructions
	}
	if d := s.gate.Evaluate(ctx, *tenant, requirement); !d.Allowed {
		return nil, d.Err()
	}

	client, _, err := s.connector.Completion(*tenant)
	if err != nil {
		return nil, err
	}

	limit := entitlement.Limit(*tenant, entitlement.AIResponses)
	used, err := s.usage.TryIncrement(ctx, tenant.ID, usagedomain.ResourceAIResponses, 1, limit)
	if err != nil {
		if errors.Is(err, usagedomain.ErrLimitReached) {
			return nil, gate.LimitReached(entitlement.AIResponses).Err()
		}
		return nil, err
	}

	completion, err := client.Complete(ctx, integrationdomain.CompletionRequest{
		System:    system,
		Prompt:    message,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		s.log.Warn("completion failed after reservation",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Int64("responses_used", used),
			zap.Error(err),
		)
		return nil, err
	}

	return &assistantdomain.Reply{
		Text:          completion.Text,
		Model:         completion.Model,
		TokensUsed:    completion.TokensUsed,
		ResponsesUsed: used,
		Limit:         limit,
	}, nil
}
