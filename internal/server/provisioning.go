package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const agentFeature = "max_agents"

func (s *Server) GetUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.directorySvc.GetUser(c.Request.Context(), id.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := directorydomain.Response{
		ID:        user.ID.String(),
		Role:      user.Role,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if user.ParentID != nil {
		parent := user.ParentID.String()
		resp.ParentID = &parent
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Role string `form:"role"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.directorySvc.ListUsers(c.Request.Context(), directorydomain.ListUsersRequest{
		Pagination: query.Pagination,
		Role:       directorydomain.Role(strings.TrimSpace(query.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateAgency(c *gin.Context) {
	var req directorydomain.CreateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.directorySvc.CreateAgency(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CreateAgent checks the agent headcount limit before provisioning. The new
// agent is also registered as an "agent" resource owned by its agency so
// the branch counter reflects it.
func (s *Server) CreateAgent(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req directorydomain.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	parentHint, err := parseOptionalID(req.ParentID, "parent_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.entitlementSvc.CheckFeatureLimit(c.Request.Context(), requester, agentFeature, parentHint)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.CanProceed {
		AbortWithError(c, &limitExceededError{Result: result})
		return
	}

	resp, err := s.directorySvc.CreateAgent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if resp.ParentID != nil {
		if agencyID, parseErr := snowflake.ParseString(*resp.ParentID); parseErr == nil {
			if _, regErr := s.usageSvc.Register(c.Request.Context(), agencyID, "agent"); regErr != nil {
				s.log.Warn("agent resource registration failed",
					zap.String("agent_id", resp.ID),
					zap.Error(regErr),
				)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
