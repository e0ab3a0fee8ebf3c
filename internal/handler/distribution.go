package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/internal/store"
	"github.com/repurposely/api/pkg/response"
)

type DistributionHandler struct {
	service   *service.DistributionService
	validator *validator.Validate
	pollWait  time.Duration
}

func NewDistributionHandler(svc *service.DistributionService, v *validator.Validate, pollWait time.Duration) *DistributionHandler {
	return &DistributionHandler{
		service:   svc,
		validator: v,
		pollWait:  pollWait,
	}
}

// Distribute handles POST /api/content/:jobId/distribute
func (h *DistributionHandler) Distribute(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.DistributeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Distribute(c.Context(), jobID, req.Targets)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrInvalidState):
			return response.InvalidState(c, err.Error())
		case errors.Is(err, service.ErrValidation):
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Attempts handles GET /api/content/:jobId/attempts. ?target filters by
// kind (comma-separated); ?wait=true blocks until every attempt in scope
// is resolved or the bounded wait elapses.
func (h *DistributionHandler) Attempts(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	kinds, err := parseTargets(c.Query("target"))
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	var result *model.AttemptListResponse
	if c.Query("wait") == "true" {
		result, err = h.service.AwaitResolution(c.Context(), jobID, kinds, h.pollWait)
	} else {
		result, err = h.service.ListAttempts(c.Context(), jobID, kinds)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func parseTargets(raw string) ([]model.TargetKind, error) {
	if raw == "" {
		return nil, nil
	}
	var kinds []model.TargetKind
	for _, part := range strings.Split(raw, ",") {
		kind := model.TargetKind(strings.TrimSpace(part))
		if !model.IsValidTarget(kind) {
			return nil, errors.New("unknown target: " + string(kind))
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
