package serverutils

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"school-admin-be/internal/pkg/apperrors"
)

var Validate = validator.New()

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

func ErrorResponse(code int, message string) APIResponse {
	_ = code
	return APIResponse{Success: false, Message: message}
}

// AppErrorResponse maps a service-layer error to the matching HTTP response.
func AppErrorResponse(ctx *fiber.Ctx, err error) error {
	status := apperrors.StatusOf(err)
	return ctx.Status(status).JSON(ErrorResponse(status, apperrors.MessageOf(err)))
}

// ErrorHandlerMiddleware catches errors escaping handlers so every response
// keeps the same envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		if fiberErr, ok := err.(*fiber.Error); ok {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}
		return AppErrorResponse(ctx, err)
	}
}

// ValidationMessage flattens validator errors into a single caller-facing line.
func ValidationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "invalid request body"
	}
	first := errs[0]
	return "field '" + first.Field() + "' failed on '" + first.Tag() + "'"
}
