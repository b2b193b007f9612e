package room

import (
	"github.com/smallbiznis/staydesk/internal/room/repository"
	"github.com/smallbiznis/staydesk/internal/room/service"
	"go.uber.org/fx"
)

var Module = fx.Module("room.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
