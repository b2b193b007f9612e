package entitlement

import (
	"testing"

	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantOn(t *testing.T, tr tier.Tier, usage tenantdomain.Usage) tenantdomain.Tenant {
	t.Helper()
	features, err := tier.FeaturesFor(tr)
	require.NoError(t, err)
	return tenantdomain.Tenant{
		ID: 1,
		Subscription: tenantdomain.Subscription{
			Tier:     tr,
			Status:   tenantdomain.StatusActive,
			Features: features,
		},
		Usage:    usage,
		IsActive: true,
	}
}

func TestUnlimitedRoomsAlwaysWithinLimit(t *testing.T) {
	for _, tr := range tier.All() {
		features, err := tier.FeaturesFor(tr)
		require.NoError(t, err)
		if features.MaxRooms != tier.Unlimited {
			continue
		}
		for _, used := range []int64{0, 1, 50, 1_000_000} {
			tn := tenantOn(t, tr, tenantdomain.Usage{CurrentRooms: used})
			assert.True(t, IsWithinLimit(tn, Rooms), "tier %s usage %d", tr, used)
			assert.Zero(t, UsagePercentage(tn, Rooms))
		}
	}
}

func TestIsWithinLimitIsStrict(t *testing.T) {
	cases := []struct {
		used int64
		want bool
	}{
		{0, true},
		{49, true},
		{50, false},
		{51, false},
	}
	for _, tc := range cases {
		tn := tenantOn(t, tier.Basic, tenantdomain.Usage{CurrentRooms: tc.used})
		assert.Equal(t, tc.want, IsWithinLimit(tn, Rooms), "usage %d", tc.used)
	}

	for _, r := range Resources() {
		tn := tenantOn(t, tier.Professional, tenantdomain.Usage{})
		limit := Limit(tn, r)
		switch r {
		case Rooms:
			tn.Usage.CurrentRooms = limit
		case AIResponses:
			tn.Usage.AIResponsesThisMonth = limit
		case Users:
			tn.Usage.UsersCount = limit
		}
		assert.False(t, IsWithinLimit(tn, r), "resource %s at limit", r)
	}
}

func TestUsagePercentageIsUnclamped(t *testing.T) {
	tn := tenantOn(t, tier.Basic, tenantdomain.Usage{CurrentRooms: 60})
	assert.Equal(t, 120.0, UsagePercentage(tn, Rooms))

	tn.Usage.AIResponsesThisMonth = 250
	assert.Equal(t, 50.0, UsagePercentage(tn, AIResponses))
}

func TestZeroLimit(t *testing.T) {
	tn := tenantOn(t, tier.Basic, tenantdomain.Usage{})
	tn.Subscription.Features.MaxUsers = 0

	assert.False(t, IsWithinLimit(tn, Users))
	assert.Zero(t, UsagePercentage(tn, Users))

	tn.Usage.UsersCount = 2
	assert.Equal(t, 200.0, UsagePercentage(tn, Users))
}

func TestHasFeatureChannels(t *testing.T) {
	basic := tenantOn(t, tier.Basic, tenantdomain.Usage{})
	assert.False(t, HasFeature(basic, SMS))
	assert.True(t, HasFeature(basic, WhatsApp))
	assert.True(t, HasFeature(basic, Email))
	assert.False(t, HasFeature(basic, Phone))

	pro := tenantOn(t, tier.Professional, tenantdomain.Usage{})
	assert.True(t, HasFeature(pro, SMS))
	assert.True(t, HasFeature(pro, VoiceCalls))
	assert.False(t, HasFeature(pro, WhiteLabel))
}

func TestHasFeatureMatchesCatalogForEveryCapability(t *testing.T) {
	for _, tr := range tier.All() {
		tn := tenantOn(t, tr, tenantdomain.Usage{})
		f := tn.Subscription.Features
		for _, c := range Capabilities() {
			var want bool
			switch c {
			case VoiceCalls:
				want = f.HasVoiceCalls
			case AdvancedAnalytics:
				want = f.HasAdvancedAnalytics
			case CustomAI:
				want = f.HasCustomAI
			case WhiteLabel:
				want = f.HasWhiteLabel
			case APIAccess:
				want = f.HasAPIAccess
			case SMS:
				want = f.HasChannel(tier.ChannelSMS)
			case Phone:
				want = f.HasChannel(tier.ChannelPhone)
			case WhatsApp:
				want = f.HasChannel(tier.ChannelWhatsApp)
			case Email:
				want = f.HasChannel(tier.ChannelEmail)
			}
			assert.Equal(t, want, HasFeature(tn, c), "tier %s capability %s", tr, c)
		}
	}
}

func TestUnknownCapability(t *testing.T) {
	tn := tenantOn(t, tier.Enterprise, tenantdomain.Usage{})
	assert.False(t, HasFeature(tn, Capability("teleport")))

	_, err := ParseCapability("teleport")
	require.ErrorIs(t, err, ErrUnknownCapability)

	c, err := ParseCapability(" SMS ")
	require.NoError(t, err)
	assert.Equal(t, SMS, c)
}

func TestChannelCapability(t *testing.T) {
	for _, ch := range []tier.Channel{tier.ChannelSMS, tier.ChannelPhone, tier.ChannelWhatsApp, tier.ChannelEmail} {
		c, ok := ChannelCapability(ch)
		require.True(t, ok)
		assert.Equal(t, string(ch), string(c))
	}
	_, ok := ChannelCapability(tier.Channel("fax"))
	assert.False(t, ok)
}

func TestIsActive(t *testing.T) {
	tn := tenantOn(t, tier.Basic, tenantdomain.Usage{})
	assert.True(t, IsActive(tn))

	tn.Subscription.Status = tenantdomain.StatusPastDue
	assert.True(t, IsActive(tn))

	tn.IsActive = false
	assert.False(t, IsActive(tn))

	tn.IsActive = true
	tn.Subscription.Status = tenantdomain.StatusCanceled
	assert.False(t, IsActive(tn))
}
