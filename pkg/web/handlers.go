package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/services"
)

type APIHandlers struct {
	targetService *services.Target
	userService   *services.User
	validator     *validator.Validate
}

func NewAPIHandlers(
	targetService *services.Target,
	userService *services.User,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		targetService: targetService,
		userService:   userService,
		validator:     validator,
	}
}

// Liveness answers the process-is-up probe without touching storage.
func (h *APIHandlers) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.targetService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.userService.Register(c.Context(), req.Email, models.NotifyChannel(req.NotifyVia))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *APIHandlers) GetUser(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "User ID is required")
	}

	user, err := h.userService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsUserNotFound(err) {
			return notFound(c, "user not found")
		}

		return internalError(c, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) CreateTarget(c fiber.Ctx) error {
	var req CreateTargetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var frequency time.Duration

	if req.Frequency != "" {
		parsed, err := time.ParseDuration(req.Frequency)
		if err != nil {
			return badRequest(c, "Invalid frequency: "+err.Error())
		}

		frequency = parsed
	}

	target, err := h.targetService.Register(c.Context(), services.RegisterTargetInput{
		OwnerID:        req.OwnerID,
		URL:            req.URL,
		Type:           models.TargetType(req.Type),
		Frequency:      frequency,
		CronExpression: req.CronExpression,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformTargetResponse(target))
}

func (h *APIHandlers) GetTargets(c fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return badRequest(c, "owner_id query parameter is required")
	}

	targets, err := h.targetService.ListByOwner(c.Context(), ownerID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"targets":     TransformTargetResponses(targets),
		"total_count": len(targets),
	})
}

func (h *APIHandlers) GetTarget(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Target ID is required")
	}

	target, err := h.targetService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformTargetResponse(target))
}

func (h *APIHandlers) UpdateTarget(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Target ID is required")
	}

	var req UpdateTargetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// Status changes first so a pause request is honored even when the
	// cadence update would be rejected.
	if req.Status != nil {
		switch models.TargetStatus(*req.Status) {
		case models.TargetStatusPaused:
			reason := ""
			if req.StatusReason != nil {
				reason = *req.StatusReason
			}

			if err := h.targetService.Pause(c.Context(), id, reason); err != nil {
				return handleServiceError(c, err)
			}
		case models.TargetStatusActive:
			if err := h.targetService.Resume(c.Context(), id); err != nil {
				return handleServiceError(c, err)
			}
		}
	}

	if req.Frequency != nil || req.CronExpression != nil {
		input := services.UpdateScheduleInput{CronExpression: req.CronExpression}

		if req.Frequency != nil {
			parsed, err := time.ParseDuration(*req.Frequency)
			if err != nil {
				return badRequest(c, "Invalid frequency: "+err.Error())
			}

			input.Frequency = &parsed
		}

		if _, err := h.targetService.UpdateSchedule(c.Context(), id, input); err != nil {
			return handleServiceError(c, err)
		}
	}

	target, err := h.targetService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformTargetResponse(target))
}

func (h *APIHandlers) DeleteTarget(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Target ID is required")
	}

	if err := h.targetService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetTargetChanges(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Target ID is required")
	}

	limit := 20

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit")
		}

		limit = parsed
	}

	var before time.Time

	if beforeStr := c.Query("before"); beforeStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, beforeStr)
		if err != nil {
			return badRequest(c, "Invalid before cursor, expected RFC3339 timestamp")
		}

		before = parsed
	}

	records, err := h.targetService.ListChanges(c.Context(), id, limit, before)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := fiber.Map{
		"changes": records,
		"count":   len(records),
	}

	// The next page's cursor is the oldest record on this page.
	if len(records) > 0 {
		response["next_before"] = records[len(records)-1].DetectedAt.Format(time.RFC3339Nano)
	}

	return c.JSON(response)
}
