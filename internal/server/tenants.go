package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
)

type signupRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.Signup(c.Request.Context(), tenantdomain.SignupRequest{
		Name: strings.TrimSpace(req.Name),
		Slug: strings.TrimSpace(req.Slug),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTenant(c *gin.Context) {
	resp, err := s.resolveTenant(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSubscriptionRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	t, err := tier.Parse(req.Tier)
	if err != nil {
		AbortWithError(c, newValidationError("tier", "unknown_tier", "unknown tier"))
		return
	}

	resp, err := s.tenantSvc.UpdateSubscription(c.Request.Context(), tenantIDFrom(c), t)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type paymentAccountRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) LinkPaymentAccount(c *gin.Context) {
	var req paymentAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.LinkPaymentAccount(c.Request.Context(), tenantIDFrom(c), req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type messagingCredentialsRequest struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
}

func (s *Server) SetMessagingCredentials(c *gin.Context) {
	var req messagingCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.SetMessagingCredentials(c.Request.Context(), tenantIDFrom(c), tenantdomain.MessagingCredentials{
		AccountSID: req.AccountSID,
		AuthToken:  req.AuthToken,
		FromNumber: req.FromNumber,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEntitlements(c *gin.Context) {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.gate.Snapshot(*tenant)})
}

// GetUsageAnalytics runs behind RequireFeature(advanced_analytics).
func (s *Server) GetUsageAnalytics(c *gin.Context) {
	tenant, ok := gate.TenantFrom(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	resources := make(map[entitlement.Resource]float64, len(entitlement.Resources()))
	for _, r := range entitlement.Resources() {
		resources[r] = s.gate.UsagePercentage(*tenant, r)
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tier":             tenant.Subscription.Tier,
		"usage_percentage": resources,
		"last_reset":       tenant.Usage.LastReset,
	}})
}
