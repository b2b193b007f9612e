// Package tier is the static catalog of subscription tiers, their feature sets
// and prices. Nothing in it performs I/O.
package tier

import (
	"errors"
	"strings"
)

type Tier string

const (
	Basic        Tier = "basic"
	Professional Tier = "professional"
	Enterprise   Tier = "enterprise"
)

// Unlimited is the limit value meaning "no ceiling".
const Unlimited = -1

var ErrUnknownTier = errors.New("unknown_tier")

// All returns the tiers in catalog order.
func All() []Tier {
	return []Tier{Basic, Professional, Enterprise}
}

func (t Tier) Valid() bool {
	switch t {
	case Basic, Professional, Enterprise:
		return true
	default:
		return false
	}
}

func (t Tier) String() string { return string(t) }

func Parse(raw string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", ErrUnknownTier
	}
	return t, nil
}

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
)

var ErrUnknownChannel = errors.New("unknown_channel")

func ParseChannel(raw string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(raw))); c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail, ChannelPhone:
		return c, nil
	default:
		return "", ErrUnknownChannel
	}
}

// FeatureSet is what a subscription entitles a tenant to. Limits use
// Unlimited (-1) for "no ceiling".
type FeatureSet struct {
	MaxRooms       int64     `json:"max_rooms"`
	MaxAIResponses int64     `json:"max_ai_responses"`
	MaxUsers       int64     `json:"max_users"`
	Channels       []Channel `json:"channels"`

	HasVoiceCalls        bool `json:"has_voice_calls"`
	HasAdvancedAnalytics bool `json:"has_advanced_analytics"`
	HasCustomAI          bool `json:"has_custom_ai"`
	HasWhiteLabel        bool `json:"has_white_label"`
	HasAPIAccess         bool `json:"has_api_access"`

	// OwnMessagingAccount lets the tenant send through its own gateway account.
	OwnMessagingAccount bool `json:"own_messaging_account"`
}

func (f FeatureSet) HasChannel(c Channel) bool {
	for _, ch := range f.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no backing storage with f.
func (f FeatureSet) Clone() FeatureSet {
	out := f
	if f.Channels != nil {
		out.Channels = append([]Channel(nil), f.Channels...)
	}
	return out
}
