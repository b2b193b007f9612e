package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	staffdomain "github.com/smallbiznis/staydesk/internal/staff/domain"
)

func (s *Server) ListStaff(c *gin.Context) {
	resp, err := s.staffSvc.List(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) InviteStaff(c *gin.Context) {
	var req staffdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.Invite(c.Request.Context(), tenantIDFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RemoveStaff(c *gin.Context) {
	userID, err := parsePathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.staffSvc.Remove(c.Request.Context(), tenantIDFrom(c), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
