package integration

import (
	"github.com/smallbiznis/staydesk/internal/integration/gateway"
	"github.com/smallbiznis/staydesk/internal/integration/registry"
	"github.com/smallbiznis/staydesk/internal/integration/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("integration",
	fx.Provide(provideRegistry),
	fx.Provide(registry.NewConnector),
)

func provideRegistry() *registry.Registry {
	return registry.NewRegistry(
		gateway.NewMessagingFactory(),
		gateway.NewCompletionFactory(),
		stripe.NewFactory(),
	)
}
