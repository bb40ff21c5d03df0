package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int                 `json:"status"`
	Code      string              `json:"code"`    // bad_request, not_found, invalid_project_code, ...
	Message   string              `json:"message"` // Human-readable message
	Detail    *domain.ImportError `json:"detail,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errTooLarge returns a 413 error.
func errTooLarge(c *fiber.Ctx, msg string) error {
	return newError(c, 413, "payload_too_large", msg)
}

// writeDomainError maps service errors onto the API error envelope.
func writeDomainError(c *fiber.Ctx, err error) error {
	var ie *domain.ImportError
	errors.As(err, &ie)
	var ue *uploadError

	switch {
	case errors.As(err, &ue):
		if ue.status == 413 {
			return errTooLarge(c, ue.msg)
		}
		return errBadRequest(c, ue.msg)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidProjectCode):
		return importError(c, "invalid_project_code", "Invalid project code", ie)
	case errors.Is(err, domain.ErrMissingOrMalformedField):
		return importError(c, "invalid_field", "Missing or malformed field", ie)
	case errors.Is(err, domain.ErrImportInProgress):
		return errConflict(c, "an import is already running for this project")
	case errors.Is(err, domain.ErrDuplicateProject):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrImportFailed):
		LoggerFromCtx(c.UserContext()).Error("import write failed", "path", c.Path(), "error", err)
		return newError(c, 502, "import_failed", "Unable to add datasets")
	case errors.Is(err, domain.ErrEmptyBatch), errors.Is(err, domain.ErrUnsupportedFormat):
		return errBadRequest(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, err.Error())
	}
}

func importError(c *fiber.Ctx, code, msg string, ie *domain.ImportError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(422).JSON(APIError{
		Status:    422,
		Code:      code,
		Message:   msg,
		Detail:    ie,
		RequestID: reqID,
	})
}
