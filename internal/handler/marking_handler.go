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

// MarkingHandler exposes marking score submission endpoints.
type MarkingHandler struct {
	service     service.MarkingService
	submitGuard []fiber.Handler
	logger      zerolog.Logger
}

// NewMarkingHandler constructs the handler. submitGuard runs before score
// submission, typically a rate limiter.
func NewMarkingHandler(service service.MarkingService, logger zerolog.Logger, submitGuard ...fiber.Handler) *MarkingHandler {
	return &MarkingHandler{
		service:     service,
		submitGuard: submitGuard,
		logger:      logger.With().Str("component", "marking_handler").Logger(),
	}
}

// RegisterAssignmentRoutes attaches marking routes under an assignment group.
func (h *MarkingHandler) RegisterAssignmentRoutes(router fiber.Router) {
	submit := append([]fiber.Handler{middleware.RequireCapability(models.CapSubmitMarks)}, h.submitGuard...)
	submit = append(submit, h.submit)
	router.Post("/:id/marking-scores", submit...)
	router.Get("/:id/marking-scores", middleware.RequireCapability(models.CapSubmitMarks), h.list)
}

func (h *MarkingHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.MarkingScoreSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	score, err := h.service.Submit(middleware.RequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrMarkerNotAssigned):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrNoPublishedRubric):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrUnknownCriterion),
			errors.Is(err, service.ErrDuplicateCriterion),
			errors.Is(err, service.ErrScoreExceedsMax),
			errors.Is(err, service.ErrTotalMismatch):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case isValidationError(err):
			return badRequest(c, err)
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("assignment_id", id).Msg("failed to submit marking score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit marking score")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "marking score submitted", score)
}

func (h *MarkingHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	scores, err := h.service.List(middleware.RequestContext(c), actorFromContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list marking scores")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list marking scores")
	}

	return utils.SendSuccess(c, "marking scores retrieved", scores)
}
