package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/moderation-api/internal/dto"
	"github.com/noah-isme/moderation-api/internal/middleware"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/service"
	"github.com/noah-isme/moderation-api/internal/utils"
)

// ActivityHandler exposes the administrative audit trail.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/:entityType/:id", middleware.RequireCapability(models.CapManageMarkers), h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	entityType := strings.TrimSpace(c.Params("entityType"))
	if entityType == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity type")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.ListForEntity(middleware.RequestContext(c), entityType, id, limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
	}

	return utils.SendSuccess(c, "activity logs", dto.NewActivityLogResponseSlice(entries))
}
