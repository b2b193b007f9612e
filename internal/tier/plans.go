package tier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is the presentation view of one catalog entry.
type Plan struct {
	TierID      Tier            `json:"tier_id"`
	DisplayName string          `json:"display_name"`
	Price       decimal.Decimal `json:"price"`
	Features    []string        `json:"features"`
	Limits      PlanLimits      `json:"limits"`
}

type PlanLimits struct {
	MaxRooms       int64 `json:"max_rooms"`
	MaxAIResponses int64 `json:"max_ai_responses"`
	MaxUsers       int64 `json:"max_users"`
}

// Plans lists every tier in catalog order.
func Plans() []Plan {
	plans := make([]Plan, 0, len(catalog))
	for _, t := range All() {
		e := catalog[t]
		plans = append(plans, Plan{
			TierID:      t,
			DisplayName: e.displayName,
			Price:       e.price,
			Features:    bullets(e.features),
			Limits: PlanLimits{
				MaxRooms:       e.features.MaxRooms,
				MaxAIResponses: e.features.MaxAIResponses,
				MaxUsers:       e.features.MaxUsers,
			},
		})
	}
	return plans
}

func bullets(f FeatureSet) []string {
	out := []string{
		limitBullet(f.MaxRooms, "room", "rooms"),
		limitBullet(f.MaxAIResponses, "AI response per month", "AI responses per month"),
		limitBullet(f.MaxUsers, "staff user", "staff users"),
	}
	if len(f.Channels) > 0 {
		names := make([]string, 0, len(f.Channels))
		for _, ch := range f.Channels {
			names = append(names, channelLabel(ch))
		}
		out = append(out, "Guest messaging via "+strings.Join(names, ", "))
	}
	if f.HasVoiceCalls {
		out = append(out, "Voice calls")
	}
	if f.HasAdvancedAnalytics {
		out = append(out, "Advanced analytics")
	}
	if f.HasCustomAI {
		out = append(out, "Custom AI assistant")
	}
	if f.HasWhiteLabel {
		out = append(out, "White label branding")
	}
	if f.HasAPIAccess {
		out = append(out, "API access")
	}
	if f.OwnMessagingAccount {
		out = append(out, "Bring your own messaging account")
	}
	return out
}

func limitBullet(limit int64, singular, plural string) string {
	switch limit {
	case Unlimited:
		return "Unlimited " + plural
	case 1:
		return "1 " + singular
	default:
		return fmt.Sprintf("Up to %d %s", limit, plural)
	}
}

func channelLabel(ch Channel) string {
	switch ch {
	case ChannelWhatsApp:
		return "WhatsApp"
	case ChannelSMS:
		return "SMS"
	case ChannelEmail:
		return "email"
	case ChannelPhone:
		return "phone"
	default:
		return string(ch)
	}
}
