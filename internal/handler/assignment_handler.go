package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/middleware"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/service"
	"github.com/noah-isme/moderation-api/internal/utils"
)

// AssignmentHandler exposes assignment and marker allocation endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment routes to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireCapability(models.CapCreateRubric), h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/markers", h.listMarkers)
	router.Post("/:id/markers", middleware.RequireCapability(models.CapManageMarkers), h.addMarker)
	router.Delete("/:id/markers/:markerId", middleware.RequireCapability(models.CapManageMarkers), h.removeMarker)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(middleware.RequestContext(c), actorFromContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		case isValidationError(err):
			return badRequest(c, err)
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to create assignment")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create assignment")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	assignment, err := h.service.Get(middleware.RequestContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch assignment")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) listMarkers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	markers, err := h.service.ListMarkers(middleware.RequestContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list markers")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list markers")
	}

	return utils.SendSuccess(c, "markers retrieved", markers)
}

func (h *AssignmentHandler) addMarker(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AssignmentMarkerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.AddMarker(middleware.RequestContext(c), actorFromContext(c), id, payload); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrNotMarker):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case isValidationError(err):
			return badRequest(c, err)
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to add marker")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to add marker")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "marker added", fiber.Map{
		"assignment_id": id,
		"marker_id":     payload.MarkerID,
	})
}

func (h *AssignmentHandler) removeMarker(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	markerID, err := parseUintParam(c, "markerId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid marker identifier")
	}

	if err := h.service.RemoveMarker(middleware.RequestContext(c), actorFromContext(c), id, markerID); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		case errors.Is(err, service.ErrMarkerNotAssigned):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to remove marker")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to remove marker")
		}
	}

	return utils.SendSuccess(c, "marker removed", fiber.Map{"assignment_id": id, "marker_id": markerID})
}
