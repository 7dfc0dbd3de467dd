package server

import (
	"net/http"
	"strings"

	plandomain "github.com/estatelane/estatelane/internal/plan/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreatePlan(c *gin.Context) {
	var req plandomain.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.CreatePlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.planSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMySubscription(c *gin.Context) {
	requester, ok := requesterID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sub, err := s.planSvc.GetActiveSubscription(c.Request.Context(), requester)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		AbortWithError(c, plandomain.ErrSubscriptionNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plandomain.SubscriptionResponse{
		ID:      sub.ID.String(),
		UserID:  sub.UserID.String(),
		PlanID:  sub.PlanID.String(),
		Status:  sub.Status,
		StartAt: sub.StartAt,
		EndAt:   sub.EndAt,
	}})
}

func (s *Server) Subscribe(c *gin.Context) {
	var req plandomain.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PlanID = strings.TrimSpace(req.PlanID)

	resp, err := s.planSvc.Subscribe(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangePlan(c *gin.Context) {
	var req plandomain.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TargetPlanID = strings.TrimSpace(req.TargetPlanID)

	resp, err := s.planSvc.ChangePlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
