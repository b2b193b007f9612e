package strategy

import (
	"github.com/smallbiznis/staydesk/internal/config"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

// Selector indexes one strategy per integration.
type Selector struct {
	strategies map[credentialdomain.Integration]credentialdomain.Strategy
}

func NewSelector(strategies ...credentialdomain.Strategy) *Selector {
	s := &Selector{strategies: make(map[credentialdomain.Integration]credentialdomain.Strategy, len(strategies))}
	for _, st := range strategies {
		s.strategies[st.Integration()] = st
	}
	return s
}

// NewDefaultSelector wires the three standard rules.
func NewDefaultSelector(platform *config.PlatformCredentialsHolder) *Selector {
	return NewSelector(
		NewMessagingStrategy(platform),
		NewPaymentStrategy(platform),
		NewAIStrategy(platform),
	)
}

func (s *Selector) Resolve(integration credentialdomain.Integration, t tenantdomain.Tenant) (credentialdomain.Bundle, error) {
	st, ok := s.strategies[integration]
	if !ok {
		return credentialdomain.Bundle{}, credentialdomain.ErrUnknownIntegration
	}
	return st.Resolve(t)
}
