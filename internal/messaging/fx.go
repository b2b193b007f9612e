package messaging

import (
	"github.com/smallbiznis/staydesk/internal/messaging/service"
	"go.uber.org/fx"
)

var Module = fx.Module("messaging.service",
	fx.Provide(service.NewService),
)
