package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
)

const contextAPIKeyKey = "api_key"

// APIKeyRequired authenticates the caller with a tenant API key. The key must
// belong to the tenant named by :id, so TenantScope runs first. Integration
// keys also need the api_access feature on every request.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.keySvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if key.TenantID != tenantIDFrom(c) {
			AbortWithError(c, ErrForbidden)
			return
		}

		if key.Kind == apikeydomain.KindIntegration {
			tenant, err := s.resolveTenant(c)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if d := s.gate.Evaluate(c.Request.Context(), *tenant, gate.Feature(entitlement.APIAccess)); !d.Allowed {
				AbortWithError(c, d.Err())
				return
			}
		}

		c.Set(contextAPIKeyKey, key)
		c.Next()
	}
}

// RequireOwnerKey limits account management to the owner key.
func (s *Server) RequireOwnerKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := apiKeyFrom(c)
		if !ok || key.Kind != apikeydomain.KindOwner {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func apiKeyFrom(c *gin.Context) (*apikeydomain.APIKey, bool) {
	v, ok := c.Get(contextAPIKeyKey)
	if !ok {
		return nil, false
	}
	key, ok := v.(*apikeydomain.APIKey)
	return key, ok && key != nil
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.keySvc.List(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": keys})
}

// CreateAPIKey issues an integration key. Only tiers with api_access can
// hold one.
func (s *Server) CreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant, err := s.resolveTenant(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if d := s.gate.Evaluate(c.Request.Context(), *tenant, gate.Feature(entitlement.APIAccess)); !d.Allowed {
		AbortWithError(c, d.Err())
		return
	}

	resp, err := s.keySvc.Issue(c.Request.Context(), nil, tenant.ID, apikeydomain.CreateRequest{
		Name: req.Name,
		Kind: apikeydomain.KindIntegration,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	resp, err := s.keySvc.Rotate(c.Request.Context(), tenantIDFrom(c), c.Param("keyId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.keySvc.Revoke(c.Request.Context(), tenantIDFrom(c), c.Param("keyId")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
