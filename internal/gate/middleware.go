package gate

import (
	"github.com/gin-gonic/gin"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

// TenantResolver loads the tenant targeted by the request.
type TenantResolver func(c *gin.Context) (*tenantdomain.Tenant, error)

const tenantContextKey = "gate.tenant"

// RequireFeature aborts the request with a *DeniedError unless req is met.
// The resolved tenant is stored for downstream handlers, see TenantFrom.
func (g *Gate) RequireFeature(resolve TenantResolver, req Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := resolve(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		if d := g.Evaluate(c.Request.Context(), *tenant, req); !d.Allowed {
			_ = c.Error(d.Err())
			c.Abort()
			return
		}

		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

func TenantFrom(c *gin.Context) (*tenantdomain.Tenant, bool) {
	v, ok := c.Get(tenantContextKey)
	if !ok {
		return nil, false
	}
	t, ok := v.(*tenantdomain.Tenant)
	return t, ok && t != nil
}
