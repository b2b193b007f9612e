package credential

import (
	"github.com/smallbiznis/staydesk/internal/credential/strategy"
	"go.uber.org/fx"
)

var Module = fx.Module("credential",
	fx.Provide(strategy.NewDefaultSelector),
)
