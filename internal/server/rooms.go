package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
)

func (s *Server) ListRooms(c *gin.Context) {
	resp, err := s.roomSvc.List(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req roomdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roomSvc.Create(c.Request.Context(), tenantIDFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteRoom(c *gin.Context) {
	roomID, err := parsePathID(c, "roomId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.roomSvc.Delete(c.Request.Context(), tenantIDFrom(c), roomID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
