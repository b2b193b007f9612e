package tier

import "github.com/shopspring/decimal"

type entry struct {
	displayName string
	price       decimal.Decimal
	features    FeatureSet
}

var catalog = map[Tier]entry{
	Basic: {
		displayName: "Basic",
		price:       decimal.NewFromInt(29),
		features: FeatureSet{
			MaxRooms:       50,
			MaxAIResponses: 500,
			MaxUsers:       3,
			Channels:       []Channel{ChannelWhatsApp, ChannelEmail},
		},
	},
	Professional: {
		displayName: "Professional",
		price:       decimal.NewFromInt(99),
		features: FeatureSet{
			MaxRooms:             200,
			MaxAIResponses:       5000,
			MaxUsers:             10,
			Channels:             []Channel{ChannelWhatsApp, ChannelSMS, ChannelEmail},
			HasVoiceCalls:        true,
			HasAdvancedAnalytics: true,
		},
	},
	Enterprise: {
		displayName: "Enterprise",
		price:       decimal.NewFromInt(299),
		features: FeatureSet{
			MaxRooms:             Unlimited,
			MaxAIResponses:       Unlimited,
			MaxUsers:             Unlimited,
			Channels:             []Channel{ChannelWhatsApp, ChannelSMS, ChannelEmail, ChannelPhone},
			HasVoiceCalls:        true,
			HasAdvancedAnalytics: true,
			HasCustomAI:          true,
			HasWhiteLabel:        true,
			HasAPIAccess:         true,
			OwnMessagingAccount:  true,
		},
	},
}

// FeaturesFor returns a copy of the catalog feature set for t.
func FeaturesFor(t Tier) (FeatureSet, error) {
	e, ok := catalog[t]
	if !ok {
		return FeatureSet{}, ErrUnknownTier
	}
	return e.features.Clone(), nil
}

// PriceFor returns the monthly price for t.
func PriceFor(t Tier) (decimal.Decimal, error) {
	e, ok := catalog[t]
	if !ok {
		return decimal.Zero, ErrUnknownTier
	}
	return e.price, nil
}

func DisplayName(t Tier) (string, error) {
	e, ok := catalog[t]
	if !ok {
		return "", ErrUnknownTier
	}
	return e.displayName, nil
}
