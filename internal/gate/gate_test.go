package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func basicTenant(t *testing.T) tenantdomain.Tenant {
	t.Helper()
	features, err := tier.FeaturesFor(tier.Basic)
	require.NoError(t, err)
	return tenantdomain.Tenant{
		ID: 7,
		Subscription: tenantdomain.Subscription{
			Tier:     tier.Basic,
			Status:   tenantdomain.StatusActive,
			Features: features,
		},
		IsActive: true,
	}
}

func TestEvaluateFeature(t *testing.T) {
	tn := basicTenant(t)

	d := Evaluate(tn, Feature(entitlement.WhatsApp))
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)

	d = Evaluate(tn, Feature(entitlement.SMS))
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeFeatureUnavailable, d.Code)
	assert.Equal(t, "feature sms not available in current plan", d.Reason)
}

func TestEvaluateLimit(t *testing.T) {
	tn := basicTenant(t)
	tn.Usage.AIResponsesThisMonth = 499
	assert.True(t, Evaluate(tn, Limit(entitlement.AIResponses)).Allowed)

	tn.Usage.AIResponsesThisMonth = 500
	d := Evaluate(tn, Limit(entitlement.AIResponses))
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeLimitExceeded, d.Code)
	assert.Equal(t, "resource ai_responses limit reached", d.Reason)
}

func TestEvaluateConjunction(t *testing.T) {
	tn := basicTenant(t)
	tn.Usage.CurrentRooms = 50

	d := Evaluate(tn, All(Feature(entitlement.Email), Limit(entitlement.Rooms)))
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeLimitExceeded, d.Code)

	d = Evaluate(tn, All(Feature(entitlement.VoiceCalls), Limit(entitlement.Rooms)))
	assert.Equal(t, CodeFeatureUnavailable, d.Code)

	assert.True(t, Evaluate(tn, All()).Allowed)
	assert.True(t, Evaluate(tn, All(Feature(entitlement.Email), Limit(entitlement.Users))).Allowed)
}

func TestEvaluateInactiveTenant(t *testing.T) {
	tn := basicTenant(t)
	tn.IsActive = false

	d := Evaluate(tn, Feature(entitlement.Email))
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeTenantInactive, d.Code)
	assert.Equal(t, "tenant is inactive", d.Reason)
}

func TestEvaluateActiveOnlyChecksStatus(t *testing.T) {
	tn := basicTenant(t)
	assert.True(t, Evaluate(tn, Active()).Allowed)

	tn.IsActive = false
	assert.Equal(t, CodeTenantInactive, Evaluate(tn, Active()).Code)
}

func TestEvaluateUnknownCapabilityDenies(t *testing.T) {
	d := Evaluate(basicTenant(t), Feature(entitlement.Capability("hologram")))
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeFeatureUnavailable, d.Code)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Evaluate(basicTenant(t), Feature(entitlement.SMS)).Err()
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, CodeFeatureUnavailable, denied.Decision.Code)
}

func TestSnapshotFlagsOverage(t *testing.T) {
	tn := basicTenant(t)
	tn.Usage.CurrentRooms = 60

	view := Snapshot(tn)
	assert.Equal(t, "basic", view.Tier)
	assert.True(t, view.Active)
	assert.Len(t, view.Features, len(entitlement.Capabilities()))
	assert.False(t, view.Features[entitlement.SMS])

	require.Len(t, view.Resources, 3)
	rooms := view.Resources[0]
	assert.Equal(t, entitlement.Rooms, rooms.Resource)
	assert.Equal(t, 120.0, rooms.Percentage)
	assert.True(t, rooms.OverLimit)
	assert.False(t, rooms.WithinLimit)
}

func TestQuerySurfaceFollowsInactiveDenial(t *testing.T) {
	g := New(Params{Log: zap.NewNop()})
	tn := basicTenant(t)
	tn.Subscription.Status = tenantdomain.StatusCanceled
	tn.IsActive = false

	require.Equal(t, CodeTenantInactive, Evaluate(tn, Feature(entitlement.WhatsApp)).Code)
	assert.False(t, g.CanUseFeature(tn, entitlement.WhatsApp))
	assert.False(t, g.IsWithinLimits(tn, entitlement.Rooms))

	view := g.Snapshot(tn)
	assert.False(t, view.Active)
	for c, available := range view.Features {
		assert.False(t, available, c)
	}
	for _, r := range view.Resources {
		assert.False(t, r.WithinLimit, r.Resource)
	}
}

func TestQuerySurface(t *testing.T) {
	g := New(Params{Log: zap.NewNop()})
	tn := basicTenant(t)
	tn.Usage.UsersCount = 3

	assert.True(t, g.CanUseFeature(tn, entitlement.WhatsApp))
	assert.False(t, g.IsWithinLimits(tn, entitlement.Users))
	assert.Equal(t, 100.0, g.UsagePercentage(tn, entitlement.Users))
	assert.False(t, g.Evaluate(context.Background(), tn, Limit(entitlement.Users)).Allowed)
}

func TestRequireFeatureMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := New(Params{Log: zap.NewNop()})
	tn := basicTenant(t)
	resolve := func(*gin.Context) (*tenantdomain.Tenant, error) { return &tn, nil }

	var captured error
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if last := c.Errors.Last(); last != nil {
			captured = last.Err
			c.Status(http.StatusForbidden)
		}
	})
	r.GET("/sms", g.RequireFeature(resolve, Feature(entitlement.SMS)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/email", g.RequireFeature(resolve, Feature(entitlement.Email)), func(c *gin.Context) {
		got, ok := TenantFrom(c)
		if !ok || got.ID != tn.ID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sms", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	var denied *DeniedError
	require.True(t, errors.As(captured, &denied))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/email", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLimitReachedMatchesSnapshotDenial(t *testing.T) {
	d := LimitReached(entitlement.Rooms)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeLimitExceeded, d.Code)
	assert.Equal(t, "resource rooms limit reached", d.Reason)
}
