package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/config"
	"github.com/estatelane/estatelane/internal/observability"
	"github.com/gin-gonic/gin"
)

type createResourceRequest struct {
	ResourceType string `json:"resource_type"`
	ParentID     string `json:"parent_id,omitempty"`
}

// CreateResource runs the feature limit check before registering the
// resource. The check and the insert are not atomic; a concurrent pair of
// creates can overshoot the cap by one.
func (s *Server) CreateResource(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resourceType := strings.TrimSpace(req.ResourceType)
	parentHint, err := parseOptionalID(req.ParentID, "parent_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.ensureResourceCapacity(c, requester, resourceType, parentHint); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.usageSvc.Register(c.Request.Context(), requester, resourceType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetResource(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.usageSvc.GetResource(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ownerID, err := snowflake.ParseString(resp.OwnerID)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	allowed, err := s.accessSvc.CanRead(c.Request.Context(), requester, ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		AbortWithError(c, ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteResource(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.usageSvc.GetResource(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ownerID, err := snowflake.ParseString(resp.OwnerID)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	allowed, err := s.accessSvc.CanModify(c.Request.Context(), requester, ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.usageSvc.Release(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

// ensureResourceCapacity maps a resource type to its counter feature and
// checks the limit. Resource types with no counter in the catalog are not
// metered and pass through.
func (s *Server) ensureResourceCapacity(c *gin.Context, requester snowflake.ID, resourceType string, parentHint snowflake.ID) error {
	feature, ok := s.counterFeatureFor(resourceType)
	if !ok {
		return nil
	}

	result, err := s.entitlementSvc.CheckFeatureLimit(c.Request.Context(), requester, feature, parentHint)
	if err != nil {
		return err
	}

	observability.LimitChecks.WithLabelValues(
		result.FeatureName,
		observability.LimitOutcome(result.CanProceed, result.LimitValue == nil),
	).Inc()

	if !result.CanProceed {
		return &limitExceededError{Result: result}
	}
	return nil
}

func (s *Server) counterFeatureFor(resourceType string) (string, bool) {
	if resourceType == "" {
		return "", false
	}
	for _, def := range s.features.Get().Catalog {
		if def.Kind == config.FeatureKindCounter && def.ResourceType == resourceType {
			return def.Code, true
		}
	}
	return "", false
}
