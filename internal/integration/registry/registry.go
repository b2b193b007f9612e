package registry

import (
	"strings"

	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

type key struct {
	integration credentialdomain.Integration
	provider    string
}

type Registry struct {
	factories map[key]integrationdomain.Factory
}

func NewRegistry(factories ...integrationdomain.Factory) *Registry {
	registry := &Registry{factories: map[key]integrationdomain.Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := normalize(factory.Provider())
		if provider == "" {
			continue
		}
		registry.factories[key{factory.Integration(), provider}] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(integration credentialdomain.Integration, provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[key{integration, normalize(provider)}]
	return ok
}

func (r *Registry) Build(bundle credentialdomain.Bundle) (integrationdomain.Client, error) {
	if r == nil {
		return nil, integrationdomain.ErrProviderNotFound
	}
	factory, ok := r.factories[key{bundle.Integration, normalize(bundle.Provider)}]
	if !ok {
		return nil, integrationdomain.ErrProviderNotFound
	}
	client, err := factory.New(bundle)
	if err != nil {
		return nil, err
	}
	if !client.Ready() {
		return nil, integrationdomain.ErrClientNotReady
	}
	return client, nil
}

func (r *Registry) Messaging(bundle credentialdomain.Bundle) (integrationdomain.MessagingClient, error) {
	client, err := r.Build(bundle)
	if err != nil {
		return nil, err
	}
	mc, ok := client.(integrationdomain.MessagingClient)
	if !ok {
		return nil, integrationdomain.ErrCapabilityMissing
	}
	return mc, nil
}

func (r *Registry) Completion(bundle credentialdomain.Bundle) (integrationdomain.CompletionClient, error) {
	client, err := r.Build(bundle)
	if err != nil {
		return nil, err
	}
	cc, ok := client.(integrationdomain.CompletionClient)
	if !ok {
		return nil, integrationdomain.ErrCapabilityMissing
	}
	return cc, nil
}

func (r *Registry) Payment(bundle credentialdomain.Bundle) (integrationdomain.PaymentClient, error) {
	client, err := r.Build(bundle)
	if err != nil {
		return nil, err
	}
	pc, ok := client.(integrationdomain.PaymentClient)
	if !ok {
		return nil, integrationdomain.ErrCapabilityMissing
	}
	return pc, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
