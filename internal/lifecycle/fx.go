package lifecycle

import (
	"github.com/smallbiznis/staydesk/internal/lifecycle/repository"
	"github.com/smallbiznis/staydesk/internal/lifecycle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lifecycle.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
