package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	assistantdomain "github.com/smallbiznis/staydesk/internal/assistant/domain"
	messagingdomain "github.com/smallbiznis/staydesk/internal/messaging/domain"
	paymentdomain "github.com/smallbiznis/staydesk/internal/payment/domain"
)

func (s *Server) CreateAssistantReply(c *gin.Context) {
	var req assistantdomain.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assistantSvc.Reply(c.Request.Context(), tenantIDFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendMessage(c *gin.Context) {
	var req messagingdomain.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messagingSvc.Send(c.Request.Context(), tenantIDFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req paymentdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Checkout(c.Request.Context(), tenantIDFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
