package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createExportRequest struct {
	ExportType string `json:"export_type"`
	EntityType string `json:"entity_type"`
	ParentID   string `json:"parent_id,omitempty"`
}

// CreateExport gates on the export capability flag and records the export
// in the audit trail. The flag check is strict; the trail write is not.
func (s *Server) CreateExport(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	exportType := strings.TrimSpace(req.ExportType)
	entityType := strings.TrimSpace(req.EntityType)
	if exportType == "" {
		AbortWithError(c, newValidationError("export_type", "invalid_export_type", "invalid export_type"))
		return
	}

	parentHint, err := parseOptionalID(req.ParentID, "parent_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.entitlementSvc.EnsureExportPermissions(c.Request.Context(), requester, parentHint); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.entitlementSvc.RecordExport(c.Request.Context(), requester, exportType, entityType); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"export_type": exportType,
		"entity_type": entityType,
		"recorded":    true,
	}})
}
