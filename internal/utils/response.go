package utils

import "github.com/gofiber/fiber/v2"

const (
	defaultSuccessMessage = "success"
	defaultErrorMessage   = "error"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// RedirectDetails tells a client which page to navigate to after a guard rejection.
type RedirectDetails struct {
	Redirect string `json:"redirect"`
}

// SendSuccess sends a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// Created sends a 201 envelope for a newly stored resource.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusCreated, message, data)
}

// SendSuccessWithStatus sends a success envelope with an explicit status. Health checks use it for 503.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// OK sends a 200 envelope carrying listing metadata such as counts or pagination.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message, Meta: meta})
}

// SendError sends an error envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends an error envelope with structured details, e.g. per-field validation messages.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Success: false, Message: message, Details: details})
}

// Redirect sends an error envelope whose details name the page the client should show instead.
func Redirect(c *fiber.Ctx, status int, message, target string) error {
	return Fail(c, status, message, RedirectDetails{Redirect: target})
}

func write(c *fiber.Ctx, status int, payload APIResponse) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if payload.Message == "" {
		if payload.Success {
			payload.Message = defaultSuccessMessage
		} else {
			payload.Message = defaultErrorMessage
		}
	}
	return c.Status(status).JSON(payload)
}
