package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"rms-be/models"
)

// ErrorDetail is one field-level problem in an error response.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Respond writes the success envelope.
func Respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// Fail aborts the request with the error envelope.
func Fail(c *gin.Context, status int, message string, details ...ErrorDetail) {
	body := gin.H{"success": false, "message": message}
	if len(details) > 0 {
		body["errors"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondError maps a domain error onto its HTTP status. Unclassified errors
// are logged and reported as 500 without their details.
func RespondError(c *gin.Context, err error) {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			Fail(c, pe.status, pe.message)
			return
		}
	}

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		Fail(c, http.StatusBadRequest, verr.Message, ErrorDetail{Field: verr.Field, Message: verr.Message})
	case errors.Is(err, models.ErrInvalidInput):
		Fail(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		Fail(c, http.StatusUnauthorized, "Not authorized")
	case errors.Is(err, models.ErrForbidden):
		Fail(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, models.ErrNotFound):
		Fail(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		Fail(c, http.StatusConflict, "Resource was modified concurrently, please retry")
	case errors.Is(err, models.ErrDependency):
		slog.Error("dependency failure", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		Fail(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		Fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// RespondBindError reports a gin binding failure, listing every failing field.
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ErrorDetail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	Fail(c, http.StatusBadRequest, "Validation failed", details...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "issuecategory":
		return "Invalid category"
	case "issuestatus":
		return "Invalid status"
	case "issuepriority":
		return "Invalid priority"
	case "votetype":
		return "Invalid vote type"
	case "email":
		return "Please enter a valid email"
	default:
		return fe.Field() + " failed on " + fe.Tag()
	}
}

var publicErrors = []struct {
	err     error
	status  int
	message string
}{
	{models.ErrEmailTaken, http.StatusConflict, "User already exists with this email"},
	{models.ErrBadCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{models.ErrAccountDisabled, http.StatusUnauthorized, "Account is deactivated"},
}
