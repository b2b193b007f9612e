package assistant

import (
	"github.com/smallbiznis/staydesk/internal/assistant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assistant.service",
	fx.Provide(service.NewService),
)
