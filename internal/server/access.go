package server

import (
	"net/http"
	"strconv"

	"github.com/estatelane/estatelane/internal/observability"
	"github.com/gin-gonic/gin"
)

type accessDecision struct {
	Operation string `json:"operation"`
	OwnerID   string `json:"owner_id"`
	Allowed   bool   `json:"allowed"`
}

func (s *Server) CheckRead(c *gin.Context) {
	s.checkAccess(c, "read")
}

func (s *Server) CheckModify(c *gin.Context) {
	s.checkAccess(c, "modify")
}

func (s *Server) checkAccess(c *gin.Context, operation string) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ownerID, err := parseOptionalID(c.Query("owner_id"), "owner_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ownerID == 0 {
		AbortWithError(c, newValidationError("owner_id", "invalid_owner_id", "invalid owner_id"))
		return
	}

	var allowed bool
	switch operation {
	case "modify":
		allowed, err = s.accessSvc.CanModify(c.Request.Context(), requester, ownerID)
	default:
		allowed, err = s.accessSvc.CanRead(c.Request.Context(), requester, ownerID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	observability.AccessDecisions.WithLabelValues(operation, strconv.FormatBool(allowed)).Inc()

	c.JSON(http.StatusOK, gin.H{"data": accessDecision{
		Operation: operation,
		OwnerID:   ownerID.String(),
		Allowed:   allowed,
	}})
}
