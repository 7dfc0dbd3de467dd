package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/authcontext"
	"github.com/gin-gonic/gin"
)

func requesterID(c *gin.Context) (snowflake.ID, bool) {
	return authcontext.UserIDFromContext(c.Request.Context())
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return id, nil
}

// parseOptionalID treats an absent value as zero. Zero means "no hint" for
// the entitlement resolution chain.
func parseOptionalID(raw, field string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return id, nil
}
