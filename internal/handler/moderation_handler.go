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

// ModerationHandler exposes moderation rounds and marker comparisons.
type ModerationHandler struct {
	service service.ModerationService
	logger  zerolog.Logger
}

// NewModerationHandler constructs the handler.
func NewModerationHandler(service service.ModerationService, logger zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{
		service: service,
		logger:  logger.With().Str("component", "moderation_handler").Logger(),
	}
}

// Register attaches moderation routes to the router group.
func (h *ModerationHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireCapability(models.CapManageModeration), h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id/status", middleware.RequireCapability(models.CapManageModeration), h.updateStatus)
	router.Get("/:id/comparison", middleware.RequireCapability(models.CapViewStatistics), h.compare)
}

func (h *ModerationHandler) create(c *fiber.Ctx) error {
	var payload dto.ModerationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	moderation, err := h.service.Create(middleware.RequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return h.writeError(c, err, "failed to create moderation")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "moderation created", moderation)
}

func (h *ModerationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	moderation, err := h.service.Get(middleware.RequestContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to fetch moderation")
	}

	return utils.SendSuccess(c, "moderation retrieved", moderation)
}

func (h *ModerationHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ModerationStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	moderation, err := h.service.UpdateStatus(middleware.RequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return h.writeError(c, err, "failed to update moderation status")
	}

	return utils.SendSuccess(c, "moderation status updated", moderation)
}

func (h *ModerationHandler) compare(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	comparison, err := h.service.Compare(middleware.RequestContext(c), actorFromContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to compare markers")
	}

	return utils.SendSuccess(c, "moderation comparison", comparison)
}

func (h *ModerationHandler) writeError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrModerationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "moderation not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, models.ErrUnknownStatus), isValidationError(err):
		return badRequest(c, err)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
