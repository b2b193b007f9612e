// Package entitlement answers what a tenant may do right now. Every function
// is a pure read over a tenant snapshot.
package entitlement

import (
	"errors"
	"strings"

	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
)

// Capability is the closed vocabulary of feature keys.
type Capability string

const (
	VoiceCalls        Capability = "voice_calls"
	AdvancedAnalytics Capability = "advanced_analytics"
	CustomAI          Capability = "custom_ai"
	WhiteLabel        Capability = "white_label"
	APIAccess         Capability = "api_access"
	SMS               Capability = "sms"
	Phone             Capability = "phone"
	WhatsApp          Capability = "whatsapp"
	Email             Capability = "email"
)

var ErrUnknownCapability = errors.New("unknown_capability")

func Capabilities() []Capability {
	return []Capability{
		VoiceCalls, AdvancedAnalytics, CustomAI, WhiteLabel, APIAccess,
		SMS, Phone, WhatsApp, Email,
	}
}

func (c Capability) Valid() bool {
	switch c {
	case VoiceCalls, AdvancedAnalytics, CustomAI, WhiteLabel, APIAccess,
		SMS, Phone, WhatsApp, Email:
		return true
	default:
		return false
	}
}

func ParseCapability(raw string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", ErrUnknownCapability
	}
	return c, nil
}

// ChannelCapability maps a messaging channel to its capability key.
func ChannelCapability(ch tier.Channel) (Capability, bool) {
	switch ch {
	case tier.ChannelSMS:
		return SMS, true
	case tier.ChannelPhone:
		return Phone, true
	case tier.ChannelWhatsApp:
		return WhatsApp, true
	case tier.ChannelEmail:
		return Email, true
	default:
		return "", false
	}
}

// Resource re-exports the ledger resources so callers depend on one package.
type Resource = usagedomain.Resource

const (
	Rooms       = usagedomain.ResourceRooms
	AIResponses = usagedomain.ResourceAIResponses
	Users       = usagedomain.ResourceUsers
)

func Resources() []Resource { return usagedomain.Resources() }

// HasFeature reports whether the tenant's subscription grants c. Values
// outside the vocabulary resolve to false.
func HasFeature(t tenantdomain.Tenant, c Capability) bool {
	f := t.Subscription.Features
	switch c {
	case VoiceCalls:
		return f.HasVoiceCalls
	case AdvancedAnalytics:
		return f.HasAdvancedAnalytics
	case CustomAI:
		return f.HasCustomAI
	case WhiteLabel:
		return f.HasWhiteLabel
	case APIAccess:
		return f.HasAPIAccess
	case SMS:
		return f.HasChannel(tier.ChannelSMS)
	case Phone:
		return f.HasChannel(tier.ChannelPhone)
	case WhatsApp:
		return f.HasChannel(tier.ChannelWhatsApp)
	case Email:
		return f.HasChannel(tier.ChannelEmail)
	default:
		return false
	}
}

// Limit returns the ceiling for r, tier.Unlimited for none. Unknown
// resources report a ceiling of zero.
func Limit(t tenantdomain.Tenant, r Resource) int64 {
	f := t.Subscription.Features
	switch r {
	case Rooms:
		return f.MaxRooms
	case AIResponses:
		return f.MaxAIResponses
	case Users:
		return f.MaxUsers
	default:
		return 0
	}
}

func Usage(t tenantdomain.Tenant, r Resource) int64 {
	return t.Usage.Value(r)
}

// IsUnlimited reports whether r has no ceiling.
func IsUnlimited(t tenantdomain.Tenant, r Resource) bool {
	return Limit(t, r) == tier.Unlimited
}

// IsWithinLimit is true when one more unit of r may be consumed: usage must
// be strictly below the limit.
func IsWithinLimit(t tenantdomain.Tenant, r Resource) bool {
	limit := Limit(t, r)
	if limit == tier.Unlimited {
		return true
	}
	return Usage(t, r) < limit
}

// UsagePercentage is usage/limit*100 without clamping, 0 when unlimited.
// A zero limit reports 0 for zero usage and 100*usage otherwise.
func UsagePercentage(t tenantdomain.Tenant, r Resource) float64 {
	limit := Limit(t, r)
	if limit == tier.Unlimited {
		return 0
	}
	usage := Usage(t, r)
	if limit == 0 {
		return float64(usage) * 100
	}
	return float64(usage) / float64(limit) * 100
}

// IsActive reports whether the tenant may use gated features at all.
func IsActive(t tenantdomain.Tenant) bool {
	return t.IsActive && t.Subscription.Status != tenantdomain.StatusCanceled
}
