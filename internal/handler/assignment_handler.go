package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/service"
	"github.com/ecolearn/ecolearn-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service   service.AssignmentService
	assistant service.AIGradingService
	logger    zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, assistant service.AIGradingService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		assistant: assistant,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/templates", h.templates)
	router.Post("/rubric/validate", h.validateRubric)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/publish", h.publish)
	router.Post("/:id/generate-answer", h.generateAnswer)
}

// RegisterCompat attaches the legacy singular routes used by older clients.
func (h *AssignmentHandler) RegisterCompat(router fiber.Router) {
	router.Post("/assignment/create", h.create)
	router.Get("/assignment/:id", h.get)
	router.Post("/generate-answer", h.generateAnswerFromBody)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	classID, err := parseQueryUint(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class_id")
	}

	req := dto.AssignmentListRequest{
		Page:     page,
		PageSize: pageSize,
		ClassID:  classID,
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	}

	assignments, meta, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, assignments, "assignments retrieved", meta)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) templates(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "assignment templates", h.service.Templates())
}

func (h *AssignmentHandler) validateRubric(c *fiber.Ctx) error {
	var weights grading.RubricWeights
	if err := c.BodyParser(&weights); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	return utils.SendSuccess(c, "rubric validated", h.service.ValidateRubric(weights))
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(requestContext(c), actorFromContext(c), payload, optionalFormFile(c, "file"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload, optionalFormFile(c, "file"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Publish(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment published", assignment)
}

func (h *AssignmentHandler) generateAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.answer(c, id)
}

func (h *AssignmentHandler) generateAnswerFromBody(c *fiber.Ctx) error {
	var payload dto.GenerateAnswerRequest
	if err := c.BodyParser(&payload); err != nil || payload.AssignmentID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "assignment_id is required")
	}
	return h.answer(c, payload.AssignmentID)
}

func (h *AssignmentHandler) answer(c *fiber.Ctx, assignmentID uint) error {
	answer, err := h.assistant.GenerateAnswer(requestContext(c), actorFromContext(c), assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "answer generated", answer)
}
