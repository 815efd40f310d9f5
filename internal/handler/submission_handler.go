package handler

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/service"
	"github.com/ecolearn/ecolearn-api/internal/utils"
)

// SubmissionHandler manages submission, grading and AI suggestion endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	grading   service.GradingService
	assistant service.AIGradingService
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, grading service.GradingService, assistant service.AIGradingService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		grading:   grading,
		assistant: assistant,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id/grade", h.grade)
	router.Post("/:id/ai-suggest", h.suggest)
}

// RegisterCompat attaches the legacy grading alias and the letter calculator.
func (h *SubmissionHandler) RegisterCompat(router fiber.Router) {
	router.Put("/submission/grade/:id", h.grade)
	router.Get("/grading/letter", h.letter)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}
	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}
	filter.AssignmentID = assignmentID
	filter.StudentID = studentID
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.service.List(requestContext(c), actorFromContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	assignmentID, err := strconv.ParseUint(c.FormValue("assignment_id"), 10, 64)
	if err != nil || assignmentID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}

	payload := dto.SubmissionCreateRequest{
		AssignmentID: uint(assignmentID),
		Content:      c.FormValue("content"),
	}

	submission, created, err := h.service.Submit(requestContext(c), actorFromContext(c), payload, optionalFormFile(c, "file"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.grading.Grade(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) suggest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	suggestion, err := h.assistant.Suggest(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "suggestion generated", suggestion)
}

func (h *SubmissionHandler) letter(c *fiber.Ctx) error {
	score, ok := parseFinite(c.Query("score"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid score")
	}
	maxPoints := 100.0
	if raw := c.Query("max_points"); raw != "" {
		if maxPoints, ok = parseFinite(raw); !ok {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid max_points")
		}
	}

	return utils.SendSuccess(c, "letter grade", h.grading.Letter(score, maxPoints))
}

// parseFinite accepts decimal numbers only; NaN and infinities cannot be
// encoded in a JSON response.
func parseFinite(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
