package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/internal/store"
	"github.com/repurposely/api/pkg/response"
)

type ContentHandler struct {
	service   *service.ContentService
	validator *validator.Validate
	pollWait  time.Duration
}

func NewContentHandler(svc *service.ContentService, v *validator.Validate, pollWait time.Duration) *ContentHandler {
	return &ContentHandler{
		service:   svc,
		validator: v,
		pollWait:  pollWait,
	}
}

// Submit handles POST /api/content
func (h *ContentHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/content/:jobId. With ?wait=true the request
// blocks until the job is terminal or the bounded wait elapses.
func (h *ContentHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var (
		result *model.JobStatusResponse
		err    error
	)
	if c.Query("wait") == "true" {
		result, err = h.service.AwaitTerminal(c.Context(), jobID, h.pollWait)
	} else {
		result, err = h.service.GetStatus(c.Context(), jobID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// List handles GET /api/content
func (h *ContentHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("perPage", 10)

	result, err := h.service.List(c.Context(), page, perPage)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
