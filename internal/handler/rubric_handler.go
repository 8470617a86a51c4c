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

// RubricHandler exposes rubric authoring and publishing endpoints.
type RubricHandler struct {
	service service.RubricService
	logger  zerolog.Logger
}

// NewRubricHandler constructs the handler.
func NewRubricHandler(service service.RubricService, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service: service,
		logger:  logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register attaches rubric routes to the router group.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireCapability(models.CapCreateRubric), h.create)
	router.Post("/import", middleware.RequireCapability(models.CapCreateRubric), h.importDocument)
	router.Get("/:id", middleware.RequireCapability(models.CapViewRubric), h.get)
	router.Post("/:id/publish", middleware.RequireCapability(models.CapPublishRubric), h.publish)
}

// RegisterAssignmentRoutes attaches rubric listing under an assignment group.
func (h *RubricHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Get("/:id/rubrics", middleware.RequireCapability(models.CapViewRubric), h.listByAssignment)
}

func (h *RubricHandler) create(c *fiber.Ctx) error {
	var payload dto.RubricCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	rubric, err := h.service.Create(middleware.RequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return h.writeError(c, err, "failed to create rubric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric created", rubric)
}

func (h *RubricHandler) importDocument(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	rubric, err := h.service.Import(middleware.RequestContext(c), actorFromContext(c), body)
	if err != nil {
		return h.writeError(c, err, "failed to import rubric")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric imported", rubric)
}

func (h *RubricHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	rubric, err := h.service.Get(middleware.RequestContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to fetch rubric")
	}

	return utils.SendSuccess(c, "rubric retrieved", rubric)
}

func (h *RubricHandler) listByAssignment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	rubrics, err := h.service.ListByAssignment(middleware.RequestContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to list rubrics")
	}

	return utils.SendSuccess(c, "rubrics retrieved", rubrics)
}

func (h *RubricHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	rubric, err := h.service.Publish(middleware.RequestContext(c), actorFromContext(c), id)
	if err != nil {
		return h.writeError(c, err, "failed to publish rubric")
	}

	return utils.SendSuccess(c, "rubric published", rubric)
}

func (h *RubricHandler) writeError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrRubricNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrRubricPublished):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRubric), isValidationError(err):
		return badRequest(c, err)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
