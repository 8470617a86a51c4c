package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/moderation-api/internal/middleware"
	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/service"
	"github.com/noah-isme/moderation-api/internal/statistics"
	"github.com/noah-isme/moderation-api/internal/utils"
)

// StatisticsHandler exposes class statistics per assignment.
type StatisticsHandler struct {
	service service.StatisticsService
	logger  zerolog.Logger
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service service.StatisticsService, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		service: service,
		logger:  logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// RegisterAssignmentRoutes attaches statistics under an assignment group.
func (h *StatisticsHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Get("/:id/statistics", middleware.RequireCapability(models.CapViewStatistics), h.summary)
}

func (h *StatisticsHandler) summary(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	summary, err := h.service.Summary(middleware.RequestContext(c), actorFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		case errors.Is(err, statistics.ErrNoData):
			return utils.SendError(c, fiber.StatusNotFound, statistics.ErrNoData.Error())
		case errors.Is(err, statistics.ErrCountMismatch):
			requestLogger(h.logger, c).Warn().Err(err).Uint("assignment_id", id).Msg("marking score count mismatch")
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, statistics.ErrNonFinite):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("assignment_id", id).Msg("failed to compute statistics")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute statistics")
		}
	}

	return utils.SendSuccess(c, "statistics computed", summary)
}
