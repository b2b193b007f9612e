package usage

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/staydesk/internal/usage/redisledger"
	"github.com/smallbiznis/staydesk/internal/usage/repository"
	"github.com/smallbiznis/staydesk/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideRedisLedger),
	fx.Provide(service.NewService),
)

type redisParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
}

func provideRedisLedger(p redisParams) *redisledger.Ledger {
	return redisledger.New(p.Client)
}
