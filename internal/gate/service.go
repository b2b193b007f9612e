package gate

import (
	"context"

	"github.com/smallbiznis/staydesk/internal/entitlement"
	obsmetrics "github.com/smallbiznis/staydesk/internal/observability/metrics"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gate",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Gate is the query surface request handlers and UI views depend on.
type Gate struct {
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func New(p Params) *Gate {
	return &Gate{
		log:     p.Log.Named("gate"),
		metrics: p.Metrics,
	}
}

func (g *Gate) Evaluate(ctx context.Context, t tenantdomain.Tenant, req Requirement) Decision {
	d := Evaluate(t, req)
	g.metrics.RecordGateDecision(ctx, string(req.Kind()), d.Allowed, string(d.Code))
	if !d.Allowed {
		g.log.Debug("gate denied",
			zap.String("tenant_id", t.ID.String()),
			zap.String("requirement", req.String()),
			zap.String("code", string(d.Code)),
		)
	}
	return d
}

// CanUseFeature and IsWithinLimits answer exactly what Evaluate enforces, so
// an inactive tenant sees nothing as available.
func (g *Gate) CanUseFeature(t tenantdomain.Tenant, c entitlement.Capability) bool {
	return Evaluate(t, Feature(c)).Allowed
}

func (g *Gate) IsWithinLimits(t tenantdomain.Tenant, r entitlement.Resource) bool {
	return Evaluate(t, Limit(r)).Allowed
}

func (g *Gate) UsagePercentage(t tenantdomain.Tenant, r entitlement.Resource) float64 {
	return entitlement.UsagePercentage(t, r)
}

type ResourceView struct {
	Resource    entitlement.Resource `json:"resource"`
	Usage       int64                `json:"usage"`
	Limit       int64                `json:"limit"`
	Unlimited   bool                 `json:"unlimited"`
	Percentage  float64              `json:"percentage"`
	WithinLimit bool                 `json:"within_limit"`
	OverLimit   bool                 `json:"over_limit"`
}

// View is what the UI renders for plan and usage panels.
type View struct {
	Tier      string                          `json:"tier"`
	Status    string                          `json:"status"`
	Active    bool                            `json:"active"`
	Features  map[entitlement.Capability]bool `json:"features"`
	Resources []ResourceView                  `json:"resources"`
}

func (g *Gate) Snapshot(t tenantdomain.Tenant) View {
	return Snapshot(t)
}

func Snapshot(t tenantdomain.Tenant) View {
	view := View{
		Tier:     string(t.Subscription.Tier),
		Status:   string(t.Subscription.Status),
		Active:   entitlement.IsActive(t),
		Features: make(map[entitlement.Capability]bool, len(entitlement.Capabilities())),
	}
	for _, c := range entitlement.Capabilities() {
		view.Features[c] = Evaluate(t, Feature(c)).Allowed
	}
	for _, r := range entitlement.Resources() {
		usage := entitlement.Usage(t, r)
		limit := entitlement.Limit(t, r)
		unlimited := entitlement.IsUnlimited(t, r)
		view.Resources = append(view.Resources, ResourceView{
			Resource:    r,
			Usage:       usage,
			Limit:       limit,
			Unlimited:   unlimited,
			Percentage:  entitlement.UsagePercentage(t, r),
			WithinLimit: Evaluate(t, Limit(r)).Allowed,
			OverLimit:   !unlimited && usage > limit,
		})
	}
	return view
}
