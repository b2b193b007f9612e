package registry

import (
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	"github.com/smallbiznis/staydesk/internal/credential/strategy"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

// Connector is the only path from a tenant to an integration client: the
// credential strategy picks the bundle, the registry builds the client.
type Connector struct {
	selector *strategy.Selector
	registry *Registry
}

func NewConnector(selector *strategy.Selector, registry *Registry) *Connector {
	return &Connector{selector: selector, registry: registry}
}

func (c *Connector) Messaging(t tenantdomain.Tenant) (integrationdomain.MessagingClient, credentialdomain.Bundle, error) {
	bundle, err := c.selector.Resolve(credentialdomain.IntegrationMessaging, t)
	if err != nil {
		return nil, credentialdomain.Bundle{}, err
	}
	client, err := c.registry.Messaging(bundle)
	return client, bundle, err
}

func (c *Connector) Completion(t tenantdomain.Tenant) (integrationdomain.CompletionClient, credentialdomain.Bundle, error) {
	bundle, err := c.selector.Resolve(credentialdomain.IntegrationAI, t)
	if err != nil {
		return nil, credentialdomain.Bundle{}, err
	}
	client, err := c.registry.Completion(bundle)
	return client, bundle, err
}

// Payment fails with credentialdomain.ErrMissingPaymentAccount before any
// client is built when the tenant has no connected account.
func (c *Connector) Payment(t tenantdomain.Tenant) (integrationdomain.PaymentClient, credentialdomain.Bundle, error) {
	bundle, err := c.selector.Resolve(credentialdomain.IntegrationPayment, t)
	if err != nil {
		return nil, credentialdomain.Bundle{}, err
	}
	client, err := c.registry.Payment(bundle)
	return client, bundle, err
}
