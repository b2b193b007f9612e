// Package gate is the single authorization checkpoint for gated actions.
// Denials are values, not errors.
package gate

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/staydesk/internal/entitlement"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

type Kind string

const (
	KindFeature Kind = "feature"
	KindLimit   Kind = "limit"
	KindAll     Kind = "all"
)

type DenialCode string

const (
	CodeNone               DenialCode = ""
	CodeFeatureUnavailable DenialCode = "feature_unavailable"
	CodeLimitExceeded      DenialCode = "limit_exceeded"
	CodeTenantInactive     DenialCode = "tenant_inactive"
)

// Requirement is a feature check, a resource-limit check or a conjunction.
type Requirement struct {
	kind       Kind
	capability entitlement.Capability
	resource   entitlement.Resource
	all        []Requirement
}

func Feature(c entitlement.Capability) Requirement {
	return Requirement{kind: KindFeature, capability: c}
}

func Limit(r entitlement.Resource) Requirement {
	return Requirement{kind: KindLimit, resource: r}
}

func All(reqs ...Requirement) Requirement {
	return Requirement{kind: KindAll, all: append([]Requirement(nil), reqs...)}
}

// Active only needs the tenant to be active.
func Active() Requirement { return All() }

func (r Requirement) Kind() Kind { return r.kind }

func (r Requirement) String() string {
	switch r.kind {
	case KindFeature:
		return "feature:" + string(r.capability)
	case KindLimit:
		return "limit:" + string(r.resource)
	case KindAll:
		parts := make([]string, 0, len(r.all))
		for _, sub := range r.all {
			parts = append(parts, sub.String())
		}
		return "all(" + strings.Join(parts, ",") + ")"
	default:
		return "unknown"
	}
}

type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  string     `json:"reason,omitempty"`
	Code    DenialCode `json:"code,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(code DenialCode, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}

// Evaluate checks req against the tenant snapshot. The first failing clause
// of a conjunction decides the reason.
func Evaluate(t tenantdomain.Tenant, req Requirement) Decision {
	if !entitlement.IsActive(t) {
		return deny(CodeTenantInactive, "tenant is inactive")
	}
	return evaluate(t, req)
}

func evaluate(t tenantdomain.Tenant, req Requirement) Decision {
	switch req.kind {
	case KindFeature:
		if entitlement.HasFeature(t, req.capability) {
			return allow()
		}
		return deny(CodeFeatureUnavailable, fmt.Sprintf("feature %s not available in current plan", req.capability))
	case KindLimit:
		if entitlement.IsWithinLimit(t, req.resource) {
			return allow()
		}
		return deny(CodeLimitExceeded, fmt.Sprintf("resource %s limit reached", req.resource))
	case KindAll:
		for _, sub := range req.all {
			if d := evaluate(t, sub); !d.Allowed {
				return d
			}
		}
		return allow()
	default:
		return deny(CodeFeatureUnavailable, "requirement not recognized")
	}
}

// LimitReached is the denial a consuming action reports when the ledger
// refuses a guarded increment that the snapshot still allowed.
func LimitReached(r entitlement.Resource) Decision {
	return deny(CodeLimitExceeded, fmt.Sprintf("resource %s limit reached", r))
}

// DeniedError carries a denial through layers that speak error.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string { return e.Decision.Reason }

// Err returns nil for an allowed decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}
