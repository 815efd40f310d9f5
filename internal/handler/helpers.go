package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ecolearn/ecolearn-api/internal/middleware"
	"github.com/ecolearn/ecolearn-api/internal/service"
	"github.com/ecolearn/ecolearn-api/internal/utils"
)

// errorStatuses maps domain errors onto HTTP statuses. Anything missing from
// the table is treated as an internal failure.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{service.ErrInvalidRefreshToken, fiber.StatusUnauthorized},
	{service.ErrAccountInactive, fiber.StatusForbidden},
	{service.ErrStudentAccountNeeded, fiber.StatusForbidden},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrEmailTaken, fiber.StatusConflict},
	{service.ErrClassNotFound, fiber.StatusNotFound},
	{service.ErrJoinCodeInvalid, fiber.StatusNotFound},
	{service.ErrStudentNotFound, fiber.StatusNotFound},
	{service.ErrStudentEmailTaken, fiber.StatusConflict},
	{service.ErrInvalidCSV, fiber.StatusBadRequest},
	{service.ErrAssignmentNotFound, fiber.StatusNotFound},
	{service.ErrAssignmentTitleRequired, fiber.StatusBadRequest},
	{service.ErrInvalidDueDate, fiber.StatusBadRequest},
	{service.ErrDueDateInPast, fiber.StatusBadRequest},
	{service.ErrTemplateNotFound, fiber.StatusBadRequest},
	{service.ErrAssignmentNotPublished, fiber.StatusConflict},
	{service.ErrAssignmentClosed, fiber.StatusConflict},
	{service.ErrSubmissionNotFound, fiber.StatusNotFound},
	{service.ErrSubmissionEmpty, fiber.StatusBadRequest},
	{service.ErrSubmissionLocked, fiber.StatusConflict},
	{service.ErrUnsupportedFileType, fiber.StatusUnsupportedMediaType},
	{service.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
	{service.ErrScoreRequired, fiber.StatusBadRequest},
	{service.ErrNegativeScore, fiber.StatusBadRequest},
	{service.ErrScoreExceedsMax, fiber.StatusBadRequest},
	{service.ErrNothingToEvaluate, fiber.StatusUnprocessableEntity},
	{service.ErrAIUnavailable, fiber.StatusServiceUnavailable},
	{service.ErrAIProviderFailed, fiber.StatusBadGateway},
	{service.ErrBadgeNotFound, fiber.StatusNotFound},
	{service.ErrBadgeNameTaken, fiber.StatusConflict},
	{service.ErrNotificationNotFound, fiber.StatusNotFound},
}

// respondError writes the error envelope for err. Validation failures carry
// per-field details; unknown errors are logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			message := entry.err.Error()
			if entry.status == fiber.StatusBadGateway {
				requestLogger(logger, c).Warn().Err(err).Msg("upstream provider failed")
			}
			return utils.SendError(c, entry.status, message)
		}
	}

	requestLogger(logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		field := strings.ToLower(fieldErr.Field())
		if fieldErr.Param() != "" {
			details[field] = fieldErr.Tag() + "=" + fieldErr.Param()
			continue
		}
		details[field] = fieldErr.Tag()
	}
	return details
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	result := uint(parsed)
	return &result, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return strings.ToLower(role)
		}
	}
	return ""
}

// actorFromContext builds the service actor from the locals set by the JWT
// middleware.
func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
	if v, ok := c.Locals("student_id").(uint); ok {
		actor.StudentID = &v
	}
	return actor
}

// requestContext returns the user context enriched with the correlation id.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// optionalFormFile returns the uploaded file under key, or nil when the
// request carries none.
func optionalFormFile(c *fiber.Ctx, key string) *multipart.FileHeader {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil
	}
	file, err := c.FormFile(key)
	if err != nil {
		return nil
	}
	return file
}
