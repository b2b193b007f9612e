package staff

import (
	"github.com/smallbiznis/staydesk/internal/staff/repository"
	"github.com/smallbiznis/staydesk/internal/staff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staff.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
