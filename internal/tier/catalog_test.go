package tier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesFor_KnownTiers(t *testing.T) {
	basic, err := FeaturesFor(Basic)
	require.NoError(t, err)
	assert.Equal(t, int64(50), basic.MaxRooms)
	assert.False(t, basic.HasChannel(ChannelSMS))

	pro, err := FeaturesFor(Professional)
	require.NoError(t, err)
	assert.Equal(t, int64(200), pro.MaxRooms)
	assert.True(t, pro.HasChannel(ChannelSMS))

	ent, err := FeaturesFor(Enterprise)
	require.NoError(t, err)
	assert.Equal(t, int64(Unlimited), ent.MaxRooms)
	assert.Equal(t, int64(Unlimited), ent.MaxAIResponses)
	assert.Equal(t, int64(Unlimited), ent.MaxUsers)
	assert.True(t, ent.OwnMessagingAccount)
}

func TestPriceFor(t *testing.T) {
	cases := map[Tier]int64{Basic: 29, Professional: 99, Enterprise: 299}
	for tr, want := range cases {
		price, err := PriceFor(tr)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(want)), "tier %s price %s", tr, price)
	}
}

func TestUnknownTier(t *testing.T) {
	_, err := FeaturesFor(Tier("platinum"))
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = PriceFor(Tier(""))
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = Parse("gold")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestParse_Normalizes(t *testing.T) {
	got, err := Parse("  Professional ")
	require.NoError(t, err)
	assert.Equal(t, Professional, got)
}

func TestFeaturesFor_ReturnsIndependentCopy(t *testing.T) {
	first, err := FeaturesFor(Basic)
	require.NoError(t, err)
	first.Channels[0] = ChannelPhone
	first.MaxRooms = 1

	second, err := FeaturesFor(Basic)
	require.NoError(t, err)
	assert.Equal(t, ChannelWhatsApp, second.Channels[0])
	assert.Equal(t, int64(50), second.MaxRooms)
}

func TestPlans(t *testing.T) {
	plans := Plans()
	require.Len(t, plans, 3)

	assert.Equal(t, Basic, plans[0].TierID)
	assert.Equal(t, "Basic", plans[0].DisplayName)
	assert.Contains(t, plans[0].Features, "Up to 50 rooms")
	assert.Equal(t, int64(50), plans[0].Limits.MaxRooms)

	assert.Equal(t, Enterprise, plans[2].TierID)
	assert.Contains(t, plans[2].Features, "Unlimited rooms")
	assert.Contains(t, plans[2].Features, "API access")
	assert.Equal(t, int64(Unlimited), plans[2].Limits.MaxUsers)
}

func TestParseChannel(t *testing.T) {
	got, err := ParseChannel(" SMS ")
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, got)

	_, err = ParseChannel("fax")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}
