package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/pkg/response"
)

type AnalyticsHandler struct {
	service *service.DistributionService
}

func NewAnalyticsHandler(svc *service.DistributionService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Overview handles GET /api/analytics/overview
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	result, err := h.service.Overview(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Posts handles GET /api/analytics/posts/:target
func (h *AnalyticsHandler) Posts(c *fiber.Ctx) error {
	kind := model.TargetKind(c.Params("target"))
	limit := c.QueryInt("limit", 10)

	attempts, err := h.service.RecentPosts(c.Context(), kind, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"platform": kind,
		"posts":    attempts,
		"count":    len(attempts),
	})
}
