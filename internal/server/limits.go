package server

import (
	"net/http"
	"strings"

	"github.com/estatelane/estatelane/internal/observability"
	"github.com/gin-gonic/gin"
)

func (s *Server) CheckFeatureLimit(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	feature := strings.TrimSpace(c.Param("feature"))
	parentHint, err := parseOptionalID(c.Query("parent_id"), "parent_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.entitlementSvc.CheckFeatureLimit(c.Request.Context(), requester, feature, parentHint)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	observability.LimitChecks.WithLabelValues(
		result.FeatureName,
		observability.LimitOutcome(result.CanProceed, result.LimitValue == nil),
	).Inc()

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetAllLimits(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	parentHint, err := parseOptionalID(c.Query("parent_id"), "parent_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	results, err := s.entitlementSvc.GetAllLimits(c.Request.Context(), requester, parentHint)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}
