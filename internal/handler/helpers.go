package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

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

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func unauthenticated(c *fiber.Ctx) error {
	return utils.Redirect(c, fiber.StatusUnauthorized, "authentication required", access.PathSignIn)
}

func complaintListRequest(c *fiber.Ctx) dto.ComplaintListRequest {
	return dto.ComplaintListRequest{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
	}
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

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationFailure renders validator errors as a 400 with one message per field.
func validationFailure(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldMessage(fieldErr)
	}
	return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
}

func fieldMessage(fieldErr validator.FieldError) string {
	field := strings.ToLower(fieldErr.Field())
	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fieldErr.Param() + " characters"
	case "max":
		return field + " must be at most " + fieldErr.Param() + " characters"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return field + " must be one of: " + fieldErr.Param()
	case "url":
		return field + " must be a valid URL"
	case "branch":
		return field + " must be a listed department"
	default:
		return field + " is invalid"
	}
}
